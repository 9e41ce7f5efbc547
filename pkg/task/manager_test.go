package task

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordTask struct {
	name     string
	startErr error
	log      *[]string
}

func (r *recordTask) Name() string { return r.name }

func (r *recordTask) Start(context.Context) error {
	*r.log = append(*r.log, "start "+r.name)
	return r.startErr
}

func (r *recordTask) Stop() error {
	*r.log = append(*r.log, "stop "+r.name)
	return nil
}

func TestManagerStopsInReverseOrder(t *testing.T) {
	var log []string
	m := NewManager()
	m.Register(&recordTask{name: "health", log: &log})
	m.Register(nil)
	m.Register(&recordTask{name: "scheduler", log: &log})

	require.NoError(t, m.StartAll(context.Background()))
	// 重复启动无效果
	require.NoError(t, m.StartAll(context.Background()))
	m.StopAll()

	assert.Equal(t, []string{"start health", "start scheduler", "stop scheduler", "stop health"}, log)
}

func TestManagerRollsBackOnStartFailure(t *testing.T) {
	var log []string
	m := NewManager()
	m.Register(&recordTask{name: "health", log: &log})
	m.Register(&recordTask{name: "registry", startErr: errors.New("etcd down"), log: &log})
	m.Register(&recordTask{name: "sweeper", log: &log})

	err := m.StartAll(context.Background())
	require.Error(t, err)
	assert.Equal(t, []string{"start health", "start registry", "stop health"}, log)
}
