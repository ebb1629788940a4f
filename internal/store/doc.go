// Package store groups the persistence backends for episode aggregates.
// Implementations live in subpackages named after their driver.
package store
