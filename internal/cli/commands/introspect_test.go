package commands

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/metamodel/runtime/metadata"
)

func TestIntrospectCommand(t *testing.T) {
	t.Run("has global flags", func(t *testing.T) {
		cmd := NewIntrospectCommand(&globalOptions{})

		formatFlag := cmd.PersistentFlags().Lookup("format")
		require.NotNil(t, formatFlag)
		assert.Equal(t, "table", formatFlag.DefValue)

		require.NotNil(t, cmd.PersistentFlags().Lookup("exclude"))
	})

	t.Run("has all subcommands", func(t *testing.T) {
		cmd := NewIntrospectCommand(&globalOptions{})

		for _, name := range []string{"types", "type", "id", "deps", "export", "serve"} {
			subCmd, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, subCmd.Name())
		}
	})
}

func TestIntrospectTypes(t *testing.T) {
	t.Run("table", func(t *testing.T) {
		stdout, stderr, err := execute(t, "introspect", "types")
		require.NoError(t, err)

		for _, id := range []string{"catalog.Product", "crm.Address", "crm.Customer", "sales.Order", "sales.OrderLine"} {
			assert.Contains(t, stdout, id)
		}
		assert.Contains(t, stdout, "Logical ID")
		assert.Contains(t, stderr, "Building metamodel")
	})

	t.Run("json", func(t *testing.T) {
		stdout, _, err := execute(t, "introspect", "types", "--format", "json")
		require.NoError(t, err)

		var types []metadata.TypeMetadata
		require.NoError(t, json.Unmarshal([]byte(stdout), &types))
		assert.Len(t, types, 5)
	})

	t.Run("pattern", func(t *testing.T) {
		stdout, _, err := execute(t, "introspect", "types", "--pattern", "crm.*", "--format", "json")
		require.NoError(t, err)

		var types []metadata.TypeMetadata
		require.NoError(t, json.Unmarshal([]byte(stdout), &types))
		require.Len(t, types, 2)
		for _, tm := range types {
			assert.Contains(t, []string{"crm.Address", "crm.Customer"}, tm.LogicalID)
		}
	})

	t.Run("no match", func(t *testing.T) {
		stdout, _, err := execute(t, "introspect", "types", "--pattern", "billing.*")
		require.NoError(t, err)
		assert.Contains(t, stdout, "No types found.")
	})

	t.Run("unsupported format", func(t *testing.T) {
		_, _, err := execute(t, "introspect", "types", "--format", "xml")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported format")
	})
}

func TestIntrospectType(t *testing.T) {
	t.Run("by logical id", func(t *testing.T) {
		stdout, _, err := execute(t, "introspect", "type", "crm.Customer")
		require.NoError(t, err)

		assert.Contains(t, stdout, "crm.Customer")
		assert.Contains(t, stdout, "A customer who places orders")
		assert.Contains(t, stdout, "Email")
		assert.Contains(t, stdout, "Promote")
	})

	t.Run("by Go type", func(t *testing.T) {
		stdout, _, err := execute(t, "introspect", "type", "domain.Order", "--format", "json")
		require.NoError(t, err)

		var tm metadata.TypeMetadata
		require.NoError(t, json.Unmarshal([]byte(stdout), &tm))
		assert.Equal(t, "sales.Order", tm.LogicalID)
	})

	t.Run("interactive", func(t *testing.T) {
		var offered []string
		original := askType
		askType = func(ids []string) (string, error) {
			offered = ids
			return "crm.Address", nil
		}
		t.Cleanup(func() { askType = original })

		stdout, _, err := execute(t, "introspect", "type", "-i", "--format", "json")
		require.NoError(t, err)

		var tm metadata.TypeMetadata
		require.NoError(t, json.Unmarshal([]byte(stdout), &tm))
		assert.Equal(t, "crm.Address", tm.LogicalID)
		assert.Contains(t, offered, "sales.Order")
	})

	t.Run("missing id", func(t *testing.T) {
		_, _, err := execute(t, "introspect", "type")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "type id required")
	})

	t.Run("did you mean", func(t *testing.T) {
		_, stderr, err := execute(t, "introspect", "type", "crm.Custmer")
		require.ErrorIs(t, err, errReported)

		assert.Contains(t, stderr, "TYPE NOT FOUND")
		assert.Contains(t, stderr, "Did you mean: crm.Customer?")
	})
}

func TestIntrospectExclude(t *testing.T) {
	postalCodeName := func(t *testing.T, args ...string) string {
		t.Helper()
		stdout, _, err := execute(t, append([]string{"introspect", "type", "crm.Address", "--format", "json"}, args...)...)
		require.NoError(t, err)

		var tm metadata.TypeMetadata
		require.NoError(t, json.Unmarshal([]byte(stdout), &tm))
		for _, m := range tm.Members {
			if m.Name != "PostalCode" {
				continue
			}
			for _, c := range m.Capabilities {
				if c.Kind == "display_name" {
					return c.Value
				}
			}
		}
		t.Fatal("PostalCode has no display name")
		return ""
	}

	assert.Equal(t, "Postal Code", postalCodeName(t))
	assert.Equal(t, "Postcode", postalCodeName(t, "--exclude", "none"))
}

func TestIntrospectID(t *testing.T) {
	stdout, _, err := execute(t, "introspect", "id", "domain.Order")
	require.NoError(t, err)
	assert.Equal(t, "sales.Order\n", stdout)

	_, stderr, err := execute(t, "introspect", "id", "domain.Ordr")
	require.ErrorIs(t, err, errReported)
	assert.Contains(t, stderr, "Did you mean: domain.Order?")
}

func TestIntrospectDeps(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		stdout, _, err := execute(t, "introspect", "deps", "sales.Order", "--format", "json")
		require.NoError(t, err)

		var report DependencyReport
		require.NoError(t, json.Unmarshal([]byte(stdout), &report))
		assert.Equal(t, "sales.Order", report.ID)
		assert.Equal(t, 2, report.Depth)
		assert.Contains(t, report.Graph.Nodes, "crm.Address")
	})

	t.Run("table", func(t *testing.T) {
		stdout, _, err := execute(t, "introspect", "deps", "sales.Order", "--depth", "1")
		require.NoError(t, err)

		assert.Contains(t, stdout, "Dependencies of sales.Order")
		assert.Contains(t, stdout, "crm.Customer")
		assert.Contains(t, stdout, "Maximum depth: 2")
	})

	t.Run("reverse", func(t *testing.T) {
		stdout, _, err := execute(t, "introspect", "deps", "crm.Customer", "--reverse")
		require.NoError(t, err)

		assert.Contains(t, stdout, "Types referencing crm.Customer")
		assert.Contains(t, stdout, "sales.Order")
	})
}

func TestIntrospectExport(t *testing.T) {
	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out", "metamodel.json")

		_, stderr, err := execute(t, "introspect", "export", "--output", path)
		require.NoError(t, err)
		assert.Contains(t, stderr, "Snapshot written to")

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		var snap metadata.Metadata
		require.NoError(t, json.Unmarshal(data, &snap))
		assert.Len(t, snap.Types, 5)
		assert.NotEmpty(t, snap.BuildID)
	})

	t.Run("stdout", func(t *testing.T) {
		stdout, _, err := execute(t, "introspect", "export", "-o", "-")
		require.NoError(t, err)

		var snap metadata.Metadata
		require.NoError(t, json.Unmarshal([]byte(stdout), &snap))
		assert.Equal(t, metadata.SchemaVersion, snap.Version)
	})
}

func TestIntrospectConfigError(t *testing.T) {
	_, stderr, err := execute(t, "introspect", "types", "--config", filepath.Join(t.TempDir(), "missing.yml"))
	require.ErrorIs(t, err, errReported)
	assert.Contains(t, stderr, "CONFIGURATION ERROR")
}

func TestIntrospectConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metamodel.yml")
	require.NoError(t, os.WriteFile(path, []byte("metamodel:\n  parallelism: 4\n"), 0644))

	stdout, _, err := execute(t, "introspect", "types", "--config", path, "--format", "json")
	require.NoError(t, err)

	var types []metadata.TypeMetadata
	require.NoError(t, json.Unmarshal([]byte(stdout), &types))
	assert.Len(t, types, 5)
}
