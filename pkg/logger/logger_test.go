package logger

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestInitLoggerLevels(t *testing.T) {
	defer logrus.SetLevel(logrus.InfoLevel)

	InitLogger("debug")
	assert.Equal(t, logrus.DebugLevel, Log.GetLevel())
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())

	InitLogger("loud")
	assert.Equal(t, logrus.InfoLevel, Log.GetLevel())
}
