package docs

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSwaggerDocumentListsRoutes(t *testing.T) {
	var doc struct {
		BasePath    string                                `json:"basePath"`
		Paths       map[string]map[string]json.RawMessage `json:"paths"`
		Definitions map[string]json.RawMessage            `json:"definitions"`
	}
	require.NoError(t, json.Unmarshal([]byte(SwaggerInfo.ReadDoc()), &doc))

	assert.Equal(t, "/api/v1", doc.BasePath)
	assert.Contains(t, doc.Paths["/assets"], "post")
	assert.Contains(t, doc.Paths["/assets/{id}/return"], "post")
	assert.Contains(t, doc.Paths["/loans/{id}/return"], "put")
	assert.Contains(t, doc.Paths["/loans/{id}/cancel"], "put")
	assert.Contains(t, doc.Paths["/auth/login"], "post")

	assert.Contains(t, doc.Definitions, "response.Response")
	assert.Contains(t, doc.Definitions, "services.RegisterAssetInput")
}
