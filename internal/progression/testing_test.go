package progression

import (
	"testing"

	"github.com/omnirpg/engine/internal/config"
)

// allowAll passes every id through the identity gate.
type allowAll struct{}

func (allowAll) IsHumanID(uint64) bool { return true }

// denyAll rejects every id.
type denyAll struct{}

func (denyAll) IsHumanID(uint64) bool { return false }

func testConfigService() *config.Service {
	return config.NewService(config.Default(), "")
}

func newTestStore(t *testing.T) (*Store, *config.Service) {
	t.Helper()
	svc := testConfigService()
	return NewStore(svc, NewFileStore(t.TempDir()), allowAll{}), svc
}
