package uribeacon

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChildLoggerFields(t *testing.T) {
	l, hook := test.NewNullLogger()
	NewLogger(l).ChildLogger(map[string]interface{}{"component": "controller"}).Infof("state %s", StateAdvertising)

	e := hook.LastEntry()
	require.NotNil(t, e)
	assert.Equal(t, "state advertising", e.Message)
	assert.Equal(t, "controller", e.Data["component"])
}

func TestSetLogLevel(t *testing.T) {
	prev := GetLogger()
	defer SetLogger(prev)

	l, _ := test.NewNullLogger()
	SetLogger(NewLogger(l))

	require.NoError(t, SetLogLevel("debug"))
	assert.Equal(t, logrus.DebugLevel, l.GetLevel())

	SetLogLevelMax()
	assert.Equal(t, logrus.TraceLevel, l.GetLevel())

	assert.Error(t, SetLogLevel("loud"))
}
