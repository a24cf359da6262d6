package preflight

import (
	"context"
	"fmt"
	"log"
	"time"

	"controltower/internal/database"
	"controltower/internal/knowledge"
)

const checkTimeout = 5 * time.Second

// Pinger is anything that can prove it is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// CheckResult represents the result of a preflight check
type CheckResult struct {
	Name    string
	Status  string // "pass", "fail", "warning"
	Message string
	Error   error
}

// Checker performs pre-flight checks before server starts
type Checker struct {
	eventStore Pinger
	db         *database.DB // nil when the event store is not SQL
	index      Pinger       // nil when no live search backend is configured
	registry   *knowledge.Registry
}

// NewChecker creates a new preflight checker
func NewChecker(eventStore Pinger, db *database.DB, index Pinger, registry *knowledge.Registry) *Checker {
	return &Checker{
		eventStore: eventStore,
		db:         db,
		index:      index,
		registry:   registry,
	}
}

// RunAll runs all preflight checks and returns results
func (c *Checker) RunAll() []CheckResult {
	log.Println("🔍 Running pre-flight checks...")

	results := []CheckResult{
		c.checkEventStoreConnection(),
		c.checkEventStoreSchema(),
		c.checkSearchBackend(),
		c.checkCustomerRegistry(),
	}

	// Print summary
	passed := 0
	failed := 0
	warnings := 0

	for _, result := range results {
		switch result.Status {
		case "pass":
			log.Printf("   ✅ %s: %s", result.Name, result.Message)
			passed++
		case "fail":
			log.Printf("   ❌ %s: %s", result.Name, result.Message)
			if result.Error != nil {
				log.Printf("      Error: %v", result.Error)
			}
			failed++
		case "warning":
			log.Printf("   ⚠️  %s: %s", result.Name, result.Message)
			warnings++
		}
	}

	log.Printf("📊 Pre-flight summary: %d passed, %d failed, %d warnings", passed, failed, warnings)

	return results
}

// HasFailures returns true if any check failed
func HasFailures(results []CheckResult) bool {
	for _, result := range results {
		if result.Status == "fail" {
			return true
		}
	}
	return false
}

// checkEventStoreConnection verifies event store connectivity
func (c *Checker) checkEventStoreConnection() CheckResult {
	ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
	defer cancel()

	if err := c.eventStore.Ping(ctx); err != nil {
		return CheckResult{
			Name:    "Event Store Connection",
			Status:  "fail",
			Message: "Cannot connect to event store",
			Error:   err,
		}
	}

	return CheckResult{
		Name:    "Event Store Connection",
		Status:  "pass",
		Message: "Event store connection successful",
	}
}

// checkEventStoreSchema verifies all required tables exist
func (c *Checker) checkEventStoreSchema() CheckResult {
	if c.db == nil {
		return CheckResult{
			Name:    "Event Store Schema",
			Status:  "pass",
			Message: "Document store, no fixed schema",
		}
	}

	requiredTables := []string{
		database.TableExceptions,
		database.TableResolutions,
		database.TableAgentDecisions,
	}

	for _, table := range requiredTables {
		exists, err := c.db.TableExists(table)
		if err != nil || !exists {
			return CheckResult{
				Name:    "Event Store Schema",
				Status:  "fail",
				Message: fmt.Sprintf("Required table '%s' not found", table),
				Error:   err,
			}
		}
	}

	return CheckResult{
		Name:    "Event Store Schema",
		Status:  "pass",
		Message: fmt.Sprintf("All %d required tables exist", len(requiredTables)),
	}
}

// checkSearchBackend warns when live searches will fail; simulation still works
func (c *Checker) checkSearchBackend() CheckResult {
	if c.index == nil {
		return CheckResult{
			Name:    "Search Backend",
			Status:  "warning",
			Message: "SEARCH_BACKEND_URL not set (only simulation searches will succeed)",
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
	defer cancel()

	if err := c.index.Ping(ctx); err != nil {
		return CheckResult{
			Name:    "Search Backend",
			Status:  "warning",
			Message: "Search backend not reachable yet",
			Error:   err,
		}
	}

	return CheckResult{
		Name:    "Search Backend",
		Status:  "pass",
		Message: "Search backend reachable",
	}
}

// checkCustomerRegistry reports registry names nested inside other names,
// since a query naming the longer customer also activates the shorter one's exclusions
func (c *Checker) checkCustomerRegistry() CheckResult {
	if c.registry == nil || c.registry.Len() == 0 {
		return CheckResult{
			Name:    "Customer Registry",
			Status:  "warning",
			Message: "Customer registry is empty (customer filtering disabled)",
		}
	}

	if nested := c.registry.NestedNames(); len(nested) > 0 {
		return CheckResult{
			Name:    "Customer Registry",
			Status:  "warning",
			Message: fmt.Sprintf("%d customers, overlapping names: %v", c.registry.Len(), nested),
		}
	}

	return CheckResult{
		Name:    "Customer Registry",
		Status:  "pass",
		Message: fmt.Sprintf("%d customers loaded", c.registry.Len()),
	}
}
