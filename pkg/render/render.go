// Package render turns the installed-mod dependency graph into visual
// outputs.
//
// # Overview
//
// [ToDOT] serializes records and their resolution outcome as Graphviz
// DOT. [RenderSVG] and [RenderPNG] rasterize a DOT string via the
// embedded Graphviz engine, so no external binary is needed.
//
//	dot := render.ToDOT(records, outcome, render.Options{})
//	svg, err := render.RenderSVG(dot)
//
// Edge semantics: solid arrows are hard dependencies, dashed arrows are
// soft ordering hints. Disabled mods are drawn greyed out; declared but
// absent dependencies appear as dashed ghost nodes.
package render

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/modfort/modfort/pkg/mod"
	"github.com/modfort/modfort/pkg/resolve"
)

// Options configures DOT generation.
type Options struct {
	// Detailed includes version and enabled state in node labels. When
	// false, only the mod id is shown.
	Detailed bool
	// Hints includes soft load-before/load-after edges.
	Hints bool
}

// ToDOT converts the installed set to Graphviz DOT. The outcome, when
// non-nil, is used to mark mods involved in cycles; pass nil to skip
// that annotation.
func ToDOT(records []*mod.Record, outcome *resolve.Outcome, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph mods {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	present := make(map[string]bool, len(records))
	for _, r := range records {
		present[r.ID] = true
	}

	for _, r := range records {
		label := fmtLabel(r, opts.Detailed)
		attrs := fmtAttrs(r, label, inCycle(outcome, r.ID))
		fmt.Fprintf(&buf, "  %q [%s];\n", r.ID, strings.Join(attrs, ", "))
	}

	// Ghost nodes for declared-but-absent dependencies.
	ghosts := map[string]bool{}
	for _, r := range records {
		for _, dep := range r.Dependencies {
			id := mod.CanonicalID(dep.ID)
			if !present[id] && !ghosts[id] {
				ghosts[id] = true
				fmt.Fprintf(&buf, "  %q [label=%q, style=\"rounded,dashed\", fontcolor=grey40];\n", id, id+"\n(missing)")
			}
		}
	}

	buf.WriteString("\n")
	for _, r := range records {
		for _, dep := range r.Dependencies {
			id := mod.CanonicalID(dep.ID)
			attrs := ""
			if dep.Optional {
				attrs = " [style=dotted]"
			}
			fmt.Fprintf(&buf, "  %q -> %q%s;\n", id, r.ID, attrs)
		}
		if opts.Hints {
			for _, id := range r.LoadAfter {
				if present[mod.CanonicalID(id)] {
					fmt.Fprintf(&buf, "  %q -> %q [style=dashed, color=grey50];\n", mod.CanonicalID(id), r.ID)
				}
			}
			for _, id := range r.LoadBefore {
				if present[mod.CanonicalID(id)] {
					fmt.Fprintf(&buf, "  %q -> %q [style=dashed, color=grey50];\n", r.ID, mod.CanonicalID(id))
				}
			}
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(r *mod.Record, detailed bool) string {
	if !detailed {
		return r.ID
	}
	parts := []string{r.ID, "v" + r.Version}
	if !r.Enabled {
		parts = append(parts, "disabled")
	}
	return strings.Join(parts, "\n")
}

func fmtAttrs(r *mod.Record, label string, cyclic bool) []string {
	attrs := []string{fmt.Sprintf("label=%q", label)}
	switch {
	case cyclic:
		attrs = append(attrs, "fillcolor=mistyrose", "color=red3")
	case !r.Enabled:
		attrs = append(attrs, "fillcolor=lightgrey", "fontcolor=grey30")
	}
	return attrs
}

func inCycle(outcome *resolve.Outcome, id string) bool {
	if outcome == nil {
		return false
	}
	for _, c := range outcome.Cycles {
		if c.Contains(id) {
			return true
		}
	}
	return false
}

// RenderSVG renders a DOT graph to SVG.
func RenderSVG(dot string) ([]byte, error) {
	var buf bytes.Buffer
	if err := renderAs(dot, graphviz.SVG, &buf); err != nil {
		return nil, err
	}
	return normalizeViewBox(buf.Bytes()), nil
}

// RenderPNG renders a DOT graph to PNG.
func RenderPNG(dot string) ([]byte, error) {
	var buf bytes.Buffer
	if err := renderAs(dot, graphviz.PNG, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func renderAs(dot string, format graphviz.Format, buf *bytes.Buffer) error {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	if err := gv.Render(ctx, g, format, buf); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	return nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites the SVG root element so width/height match
// the viewBox, keeping output stable across Graphviz versions.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}
