// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The Registry is shared by every service touching session indexes:
// it caches open handles and serialises mutation per session.
package services
