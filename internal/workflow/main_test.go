package workflow

import (
	"os"
	"testing"

	"github.com/ariel-frischer/shipset/internal/logging"
)

func TestMain(m *testing.M) {
	logging.ConfigureTests()
	os.Exit(m.Run())
}
