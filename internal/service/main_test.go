package service

import (
	"os"
	"testing"

	"lotto-server/common/logger"
)

func TestMain(m *testing.M) {
	logger.InitLogger()
	os.Exit(m.Run())
}
