// Package postgres manages the PostgreSQL connections the lifecycle host
// begins its transactions on: a primary/replica resolver over pgx, with
// schema migrations applied on connect.
package postgres
