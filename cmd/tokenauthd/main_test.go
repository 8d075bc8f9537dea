package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	require.Contains(t, out.String(), appName+" version "+Version)
}

func TestHashPasswordFromStdin(t *testing.T) {
	t.Setenv("PASSWORD_MEMORY", "8192")
	t.Setenv("PASSWORD_TIME", "1")
	t.Setenv("PASSWORD_PARALLELISM", "1")

	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader("a-long-enough-password\n"))
	cmd.SetArgs([]string{"hash-password"})

	require.NoError(t, cmd.Execute())
	require.True(t, strings.HasPrefix(out.String(), "$argon2id$"), out.String())
}

func TestHashPasswordRejectsShort(t *testing.T) {
	t.Setenv("PASSWORD_MEMORY", "8192")
	t.Setenv("PASSWORD_TIME", "1")

	cmd := rootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"hash-password", "short"})

	require.Error(t, cmd.Execute())
}

func TestMigrateRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	cmd := rootCmd()
	cmd.SetArgs([]string{"migrate"})
	err := cmd.Execute()
	require.Error(t, err)
	require.Contains(t, err.Error(), "DATABASE_URL")
}
