// Package incident is the business boundary for remedy's incident response
// pipeline. It defines the report model, the orchestrator Service (staged
// pipeline, collector fan-out, provider fallback), and the Store, Provider,
// Collector, and Notifier contracts.
package incident
