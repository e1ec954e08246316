package main

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appmigrations "github.com/wolfman30/medical-appointment-scheduler/migrations"
)

func TestParseCommand(t *testing.T) {
	cases := []struct {
		args []string
		want command
	}{
		{nil, command{name: "up"}},
		{[]string{"up"}, command{name: "up"}},
		{[]string{"down"}, command{name: "down", n: 1}},
		{[]string{"down", "2"}, command{name: "down", n: 2}},
		{[]string{"force", "1"}, command{name: "force", n: 1}},
		{[]string{"version"}, command{name: "version"}},
	}
	for _, tc := range cases {
		got, err := parseCommand(tc.args)
		require.NoError(t, err, "%v", tc.args)
		assert.Equal(t, tc.want, got, "%v", tc.args)
	}

	for _, bad := range [][]string{{"sideways"}, {"force"}, {"force", "x"}, {"down", "0"}} {
		_, err := parseCommand(bad)
		assert.Error(t, err, "%v", bad)
	}
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	ups, err := fs.Glob(appmigrations.FS, "*.up.sql")
	require.NoError(t, err)
	downs, err := fs.Glob(appmigrations.FS, "*.down.sql")
	require.NoError(t, err)
	require.NotEmpty(t, ups)
	assert.Equal(t, len(ups), len(downs))

	schema, err := fs.ReadFile(appmigrations.FS, "000001_init.up.sql")
	require.NoError(t, err)
	for _, table := range []string{"schedule_slots", "patients", "appointment_records"} {
		assert.Contains(t, string(schema), table)
	}
}
