//go:build unit

package signal

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func noopListener() Listener {
	return ListenerFunc(func(_ context.Context, _ *Signal) error { return nil })
}

func TestRegistryRegisterValidation(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()

	_, err := registry.Register("", nil, noopListener())
	require.ErrorIs(t, err, ErrNameRequired)

	_, err = registry.Register("   ", nil, noopListener())
	require.ErrorIs(t, err, ErrNameRequired)

	_, err = registry.Register(AfterWrite, nil, nil)
	require.ErrorIs(t, err, ErrListenerRequired)

	var typedNil ListenerFunc
	_, err = registry.Register(AfterWrite, nil, typedNil)
	require.ErrorIs(t, err, ErrListenerRequired)
}

func TestRegistryRegisterTrimsName(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()

	subscription, err := registry.Register("  after-write  ", nil, noopListener())
	require.NoError(t, err)
	require.Equal(t, AfterWrite, subscription.Name())
	require.NotEqual(t, uuid.Nil, subscription.ID())
	require.Equal(t, 1, registry.Len(AfterWrite))
}

func TestRegistryListenersForPreservesRegistrationOrder(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	want := make([]uuid.UUID, 0, 10)

	for i := 0; i < 10; i++ {
		subscription, err := registry.Register(BeforeWrite, nil, noopListener())
		require.NoError(t, err)

		want = append(want, subscription.ID())
	}

	matched := registry.ListenersFor(BeforeWrite, nil)
	require.Len(t, matched, 10)

	for i, subscription := range matched {
		require.Equal(t, want[i], subscription.ID())
	}
}

func TestRegistryListenersForAppliesFilters(t *testing.T) {
	t.Parallel()

	type order struct{ id string }
	type invoice struct{ id string }

	registry := NewRegistry()

	forOrders, err := registry.Register(AfterWrite, ForSubject[*order](), noopListener())
	require.NoError(t, err)

	forAny, err := registry.Register(AfterWrite, nil, noopListener())
	require.NoError(t, err)

	_, err = registry.Register(AfterWrite, ForSubject[*invoice](), noopListener())
	require.NoError(t, err)

	matched := registry.ListenersFor(AfterWrite, &order{id: "o-1"})
	require.Len(t, matched, 2)
	require.Equal(t, forOrders.ID(), matched[0].ID())
	require.Equal(t, forAny.ID(), matched[1].ID())
}

func TestRegistryListenersForUnknownName(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	require.Empty(t, registry.ListenersFor("never-registered", nil))
}

func TestRegistryUnregisterIsIdempotent(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()

	keep, err := registry.Register(AfterWrite, nil, noopListener())
	require.NoError(t, err)

	drop, err := registry.Register(AfterWrite, nil, noopListener())
	require.NoError(t, err)

	registry.Unregister(drop)
	require.Equal(t, 1, registry.Len(AfterWrite))

	// Second removal of the same handle is a no-op both times.
	registry.Unregister(drop)
	registry.Unregister(nil)
	require.Equal(t, 1, registry.Len(AfterWrite))

	matched := registry.ListenersFor(AfterWrite, nil)
	require.Len(t, matched, 1)
	require.Equal(t, keep.ID(), matched[0].ID())
}

func TestRegistryUnregisterLastRemovesName(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()

	only, err := registry.Register(BeforeWrite, nil, noopListener())
	require.NoError(t, err)

	registry.Unregister(only)
	require.Zero(t, registry.Len(BeforeWrite))
	require.Empty(t, registry.ListenersFor(BeforeWrite, nil))
}

func TestRegistrySnapshotSurvivesConcurrentMutation(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()

	for i := 0; i < 8; i++ {
		_, err := registry.Register(AfterWrite, nil, noopListener())
		require.NoError(t, err)
	}

	var wg sync.WaitGroup

	// Readers iterate snapshots while writers churn the listener list. The
	// ordering invariant must hold on every snapshot observed.
	for reader := 0; reader < 4; reader++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for i := 0; i < 500; i++ {
				matched := registry.ListenersFor(AfterWrite, nil)

				for j := 1; j < len(matched); j++ {
					if matched[j].seq <= matched[j-1].seq {
						t.Error("snapshot violated registration order")
						return
					}
				}
			}
		}()
	}

	for writer := 0; writer < 2; writer++ {
		wg.Add(1)

		go func(id int) {
			defer wg.Done()

			for i := 0; i < 200; i++ {
				subscription, err := registry.Register(
					Name(fmt.Sprintf("churn-%d", id)), nil, noopListener())
				if err != nil {
					t.Error(err)
					return
				}

				extra, err := registry.Register(AfterWrite, nil, noopListener())
				if err != nil {
					t.Error(err)
					return
				}

				registry.Unregister(extra)
				registry.Unregister(subscription)
			}
		}(writer)
	}

	wg.Wait()
	require.Equal(t, 8, registry.Len(AfterWrite))
}

func TestNilRegistryIsInert(t *testing.T) {
	t.Parallel()

	var registry *Registry

	_, err := registry.Register(AfterWrite, nil, noopListener())
	require.ErrorIs(t, err, ErrRegistryRequired)

	registry.Unregister(&Subscription{})
	require.Nil(t, registry.ListenersFor(AfterWrite, nil))
	require.Zero(t, registry.Len(AfterWrite))
}
