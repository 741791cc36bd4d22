package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "profilegen", cmd.Use)
	assert.Contains(t, cmd.Long, "decision tree")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"generate", "validate", "visualise", "runs", "test"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestVisualizeAlias(t *testing.T) {
	cmd := NewRootCommand()
	subCmd, _, err := cmd.Find([]string{"visualize"})
	require.NoError(t, err)
	assert.Equal(t, "visualise", subCmd.Name())
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "", configFlag.DefValue)
}

func TestGenerateCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	generateCmd, _, err := cmd.Find([]string{"generate"})
	require.NoError(t, err)

	maxRows := generateCmd.Flags().Lookup("max-rows")
	require.NotNil(t, maxRows)
	assert.Equal(t, "n", maxRows.Shorthand)
	assert.Equal(t, "1000", maxRows.DefValue)

	output := generateCmd.Flags().Lookup("output")
	require.NotNil(t, output)
	assert.Equal(t, "o", output.Shorthand)

	for name, def := range map[string]string{
		"walker":            "cartesian",
		"field-selection":   "frequency",
		"mode":              "full_sequential",
		"combination":       "pinning",
		"max-string-length": "1000",
		"violate":           "false",
		"no-partition":      "false",
		"store":             "",
	} {
		f := generateCmd.Flags().Lookup(name)
		require.NotNil(t, f, "flag %s", name)
		assert.Equal(t, def, f.DefValue, "flag %s", name)
	}
}

func TestValidateCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	validateCmd, _, err := cmd.Find([]string{"validate"})
	require.NoError(t, err)

	f := validateCmd.Flags().Lookup("require-types")
	require.NotNil(t, f)
	assert.Equal(t, "false", f.DefValue)
}

func TestVisualiseCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	visualiseCmd, _, err := cmd.Find([]string{"visualise"})
	require.NoError(t, err)

	require.NotNil(t, visualiseCmd.Flags().Lookup("dot"))
	require.NotNil(t, visualiseCmd.Flags().Lookup("partition"))
}

func TestTestCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	testCmd, _, err := cmd.Find([]string{"test"})
	require.NoError(t, err)

	updateFlag := testCmd.Flags().Lookup("update")
	require.NotNil(t, updateFlag)
	assert.Equal(t, "false", updateFlag.DefValue)

	filterFlag := testCmd.Flags().Lookup("filter")
	require.NotNil(t, filterFlag)
	assert.Equal(t, "", filterFlag.DefValue)
}

func TestFormatValidation(t *testing.T) {
	// Test valid formats
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))

	// Test invalid formats
	assert.False(t, isValidFormat("xml"))
	assert.False(t, isValidFormat(""))
	assert.False(t, isValidFormat("TEXT"))
}

func TestFormatValidationIntegration(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"--format", "invalid", "validate", "."})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}
