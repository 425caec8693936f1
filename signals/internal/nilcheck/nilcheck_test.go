//go:build unit

package nilcheck

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type sampleInterface interface {
	Do()
}

type sampleImpl struct{}

func (*sampleImpl) Do() {}

func TestInterface(t *testing.T) {
	t.Parallel()

	var nilPointer *sampleImpl
	var nilFunc func()
	var nilIface sampleInterface

	var typedNilIface sampleInterface = nilPointer

	require.True(t, Interface(nil))
	require.True(t, Interface(nilPointer))
	require.True(t, Interface(nilFunc))
	require.True(t, Interface(nilIface))
	require.True(t, Interface(typedNilIface))

	require.False(t, Interface(&sampleImpl{}))
	require.False(t, Interface("value"))
	require.False(t, Interface(0))
}
