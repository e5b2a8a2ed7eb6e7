package memrepo

import (
	"testing"

	"github.com/bufdev/capgains/internal/ledger"
	"github.com/bufdev/capgains/internal/repo/repotest"
)

func TestRepository(t *testing.T) {
	repotest.Run(t, func() ledger.Repository {
		return New()
	})
}
