package db

import (
	"strings"
	"testing"

	"github.com/jonathan/learn-overlay/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestSchema_DefinesTables(t *testing.T) {
	schema := Schema()
	assert.Contains(t, schema, "CREATE TABLE IF NOT EXISTS projects")
	assert.Contains(t, schema, "CREATE TABLE IF NOT EXISTS activity_log")
	assert.Contains(t, schema, "access_key   TEXT        NOT NULL UNIQUE")
	assert.Contains(t, schema, "ON DELETE CASCADE")
	assert.True(t, strings.Contains(schema, "projects_one_target"))
}

func TestValidateProject(t *testing.T) {
	tests := []struct {
		name    string
		project *types.Project
		wantErr string
	}{
		{name: "nil", project: nil, wantErr: "nil"},
		{name: "no name", project: &types.Project{AccessKey: "k", ScrapeURL: strPtr("https://a")}, wantErr: "name"},
		{name: "no key", project: &types.Project{Name: "n", ScrapeURL: strPtr("https://a")}, wantErr: "access key"},
		{name: "both targets", project: &types.Project{Name: "n", AccessKey: "k", ScrapeURL: strPtr("https://a"), RepoURL: strPtr("https://b")}, wantErr: "exactly one"},
		{name: "neither target", project: &types.Project{Name: "n", AccessKey: "k"}, wantErr: "exactly one"},
		{name: "empty pointer counts as unset", project: &types.Project{Name: "n", AccessKey: "k", ScrapeURL: strPtr(""), RepoURL: strPtr("https://b")}},
		{name: "page", project: &types.Project{Name: "n", AccessKey: "k", ScrapeURL: strPtr("https://a")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateProject(tt.project)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMarshalFunctionMap(t *testing.T) {
	b, err := marshalFunctionMap(nil)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(b))

	b, err = marshalFunctionMap(types.FunctionMap{"footer": "Legal links"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"footer":"Legal links"}`, string(b))
}
