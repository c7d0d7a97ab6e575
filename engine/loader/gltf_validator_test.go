package loader

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAcceptsWellFormedDocument(t *testing.T) {
	p := parseDocument(t, fmt.Sprintf(triangleJSON, 42, ""))
	assert.NoError(t, newGLTFValidator(p).Validate())
}

func TestValidateWithoutDocument(t *testing.T) {
	err := newGLTFValidator(newGLTFParser()).Validate()
	assert.ErrorIs(t, err, ErrMalformedContainer)
}

func TestValidateCollectsEveryIssue(t *testing.T) {
	p := parseDocument(t, `{
		"asset": {"version": "2.0"},
		"scenes": [{"nodes": [5]}],
		"nodes": [{"matrix": [1,0,0,0, 0,1,0,0, 0,0,1,0, 0,0,0,1], "translation": [1, 0, 0]}],
		"meshes": [{"primitives": [{"attributes": {"POSITION": 9}}]}]
	}`)

	err := newGLTFValidator(p).Validate()
	require.Error(t, err)
	assert.Equal(t, CategoryStructural, CategoryOf(err))
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	assert.ErrorIs(t, err, ErrConflictingTransform)

	issues := Issues(err)
	require.Len(t, issues, 4)
	assert.Equal(t, "3 issues", issues[0].Ref)

	var refs []string
	for _, issue := range issues[1:] {
		assert.Equal(t, "validate", issue.Op)
		refs = append(refs, issue.Ref)
	}
	assert.ElementsMatch(t, []string{
		"scenes[0].nodes[0]",
		"nodes[0]",
		"meshes[0].primitives[0].attributes.POSITION",
	}, refs)
}

func TestValidateSingleIssueIsNotJoined(t *testing.T) {
	p := parseDocument(t, `{"asset": {"version": "2.0"}, "scene": 3}`)
	err := newGLTFValidator(p).Validate()
	require.Error(t, err)
	issues := Issues(err)
	require.Len(t, issues, 1)
	assert.Equal(t, "scene", issues[0].Ref)
}

func TestValidateNodeGraph(t *testing.T) {
	tests := []struct {
		name  string
		nodes string
	}{
		{name: "self child", nodes: `[{"children": [0]}]`},
		{name: "two node cycle", nodes: `[{"children": [1]}, {"children": [0]}]`},
		{name: "three node cycle", nodes: `[{"children": [1]}, {"children": [2]}, {"children": [0]}]`},
		{name: "two parents", nodes: `[{"children": [2]}, {"children": [2]}, {}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := parseDocument(t, `{"asset": {"version": "2.0"}, "nodes": `+tt.nodes+`}`)
			err := newGLTFValidator(p).Validate()
			assert.ErrorIs(t, err, ErrCyclicNodeGraph)
		})
	}
}

func TestValidateReferences(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		ref  string
	}{
		{
			name: "buffer view buffer",
			doc:  `"bufferViews": [{"buffer": 1, "byteLength": 4}], "buffers": [{"byteLength": 4}]`,
			ref:  "bufferViews[0].buffer",
		},
		{
			name: "accessor buffer view",
			doc:  `"accessors": [{"bufferView": 2, "componentType": 5126, "count": 1, "type": "SCALAR"}]`,
			ref:  "accessors[0].bufferView",
		},
		{
			name: "texture source",
			doc:  `"textures": [{"source": 0}]`,
			ref:  "textures[0].source",
		},
		{
			name: "material texture",
			doc:  `"materials": [{"pbrMetallicRoughness": {"baseColorTexture": {"index": 4}}}]`,
			ref:  "materials[0].pbrMetallicRoughness.baseColorTexture",
		},
		{
			name: "skin joint",
			doc:  `"skins": [{"joints": [3]}]`,
			ref:  "skins[0].joints[0]",
		},
		{
			name: "node mesh",
			doc:  `"nodes": [{"mesh": 0}]`,
			ref:  "nodes[0].mesh",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := parseDocument(t, `{"asset": {"version": "2.0"}, `+tt.doc+`}`)
			err := newGLTFValidator(p).Validate()
			require.ErrorIs(t, err, ErrIndexOutOfRange)
			issues := Issues(err)
			require.NotEmpty(t, issues)
			assert.Equal(t, tt.ref, issues[len(issues)-1].Ref)
		})
	}
}
