/*
Package observability turns runtime lifecycle hooks into Prometheus metrics and
structured audit logs.

Both are plain domain.LifecycleHooks values, so they compose with
domain.LifecycleHooks.Merge and can be attached to any machine.
*/
package observability
