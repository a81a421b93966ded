package cmd

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Ronakdeora/smart-course/internal/config"
)

// mockApp satisfies the App interface for command tests.
type mockApp struct {
	runCalls   int
	closeCalls int
	runErr     error
}

func (m *mockApp) Run(_ context.Context) error {
	m.runCalls++
	return m.runErr
}

func (m *mockApp) Close() { m.closeCalls++ }

func withMockApp(t *testing.T, m *mockApp) {
	t.Helper()
	orig := newApp
	newApp = func(_ context.Context, _ config.Config) (App, error) {
		return m, nil
	}
	t.Cleanup(func() { newApp = orig })
}

func setNoOpEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SMARTCOURSE_DB_PROVIDER", "noop")
	t.Setenv("SMARTCOURSE_BACKUP_PROVIDER", "noop")
}

func TestServeRunsAndClosesApp(t *testing.T) {
	setNoOpEnv(t)
	m := &mockApp{}
	withMockApp(t, m)

	root := newRootCmd()
	root.SetArgs([]string{"serve"})
	require.NoError(t, root.Execute())

	require.Equal(t, 1, m.runCalls)
	require.Equal(t, 1, m.closeCalls)
}

func TestServePropagatesRunError(t *testing.T) {
	setNoOpEnv(t)
	m := &mockApp{runErr: fmt.Errorf("broker unreachable")}
	withMockApp(t, m)

	root := newRootCmd()
	root.SetArgs([]string{"serve"})
	err := root.Execute()
	require.ErrorContains(t, err, "broker unreachable")
	require.Equal(t, 1, m.closeCalls)
}

func TestServeFailsOnInvalidConfig(t *testing.T) {
	// Default db provider is postgres; without a DSN configuration loading
	// must fail before the app is built.
	t.Setenv("SMARTCOURSE_DB_PROVIDER", "postgres")
	t.Setenv("SMARTCOURSE_DB_DSN", "")
	m := &mockApp{}
	withMockApp(t, m)

	root := newRootCmd()
	root.SetArgs([]string{"serve"})
	require.Error(t, root.Execute())
	require.Zero(t, m.runCalls)
}

func TestPublishRequiresTopicFlag(t *testing.T) {
	setNoOpEnv(t)

	root := newRootCmd()
	root.SetArgs([]string{"publish", "--user-id", "u1"})
	require.Error(t, root.Execute())
}
