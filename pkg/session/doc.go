/*
Package session runs form sessions against a store.

The engine itself is stateless: it takes a session and returns a new one.
Manager wraps it with the load, apply and save cycle a host needs, and
serializes operations per user id with in-process locks and, optionally, a
ports.DistributedLocker shared across replicas.
*/
package session
