package transport

import (
	"os"
	"testing"
)

func TestMain(m *testing.M) {
	Initialize()
	code := m.Run()
	Teardown()
	os.Exit(code)
}
