// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The generation pipeline lives here: seed generation, the evolution
// engine, golden assembly and the orchestrator that fans units out.
//
// Services are pure Go with no CGO. Beyond the standard library they use
// golang.org/x/sync for bounded fan-out, go-playground/validator for request
// validation and google/uuid for identifiers.
package services
