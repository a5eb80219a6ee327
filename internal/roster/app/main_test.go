package app

import (
	"os"
	"testing"

	"chat_roster_service/pkg/logger"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "roster_app_test")
	if err != nil {
		panic(err)
	}
	logger.Log = logger.Initialize("roster_app_test", dir)

	code := m.Run()

	os.RemoveAll(dir)
	os.Exit(code)
}
