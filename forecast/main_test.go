package forecast

import (
	"os"
	"testing"

	"app/config"
)

func TestMain(m *testing.M) {
	config.Load()
	os.Exit(m.Run())
}
