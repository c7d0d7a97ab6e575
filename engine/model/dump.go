package model

import (
	"fmt"
	"io"
	"strings"

	"github.com/Carmen-Shannon/oxy-gltf/common"

	"github.com/davecgh/go-spew/spew"
)

var dumpConfig = spew.ConfigState{
	Indent:                  "  ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
	MaxDepth:                6,
}

// Dump writes a human-readable outline of the scene graph to w, followed by a deep dump of
// each material. Vertex and pixel data are summarized by length.
//
// Parameters:
//   - w: the destination writer
//   - m: the model to describe
func Dump(w io.Writer, m Model) {
	fmt.Fprintf(w, "model %q: %d nodes, %d meshes, %d materials, %d images, %d buffers\n",
		m.Name(), len(m.Nodes()), len(m.Meshes()), len(m.Materials()), len(m.Images()), m.BufferCount())

	var visit func(id NodeID, depth int)
	visit = func(id NodeID, depth int) {
		n := m.Node(id)
		fmt.Fprintf(w, "%snode %d %q (doc %d) %s", strings.Repeat("  ", depth+1), id, n.Name, n.Index, transformKind(n.Transform))
		if n.Mesh != nil {
			mesh := m.Mesh(*n.Mesh)
			fmt.Fprintf(w, " mesh %d %q [", *n.Mesh, mesh.Name)
			for i, p := range mesh.Primitives {
				if i > 0 {
					fmt.Fprint(w, ", ")
				}
				fmt.Fprintf(w, "%s v=%d i=%d mat=%d", p.Topology, p.Attributes.Len(), len(p.Indices), p.Material)
			}
			fmt.Fprint(w, "]")
		}
		fmt.Fprintln(w)
		for _, c := range n.Children {
			visit(c, depth+1)
		}
	}
	for _, root := range m.Roots() {
		visit(root, 0)
	}

	for i := range m.Materials() {
		fmt.Fprintf(w, "material %d: %s", i, dumpConfig.Sdump(m.Material(MaterialID(i))))
	}
	for i, img := range m.Images() {
		fmt.Fprintf(w, "image %d %q: %dx%d %s (%d bytes)\n", i, img.Name, img.Staging.Width, img.Staging.Height, img.MimeType, len(img.Staging.Pixels))
	}
}

// Sdump returns Dump's output as a string.
//
// Parameters:
//   - m: the model to describe
//
// Returns:
//   - string: the outline
func Sdump(m Model) string {
	var b strings.Builder
	Dump(&b, m)
	return b.String()
}

// transformKind labels a transform for the outline; identity transforms are called out.
func transformKind(t Transform) string {
	kind := "trs"
	if _, ok := t.(MatrixTransform); ok {
		kind = "matrix"
	}
	if t == nil || common.IsIdentity(t.Matrix()) {
		return kind + " identity"
	}
	return kind
}
