// ABOUTME: Graphviz renderings of the deal pipeline and the account map
// ABOUTME: Builds graphs from the workspace caches and renders DOT, SVG, or PNG
package viz

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"

	"github.com/harperreed/pagen-admin/crm"
	"github.com/harperreed/pagen-admin/models"
)

// Format selects the graph output encoding.
type Format string

const (
	FormatDOT Format = "dot"
	FormatSVG Format = "svg"
	FormatPNG Format = "png"
)

// ParseFormat maps a file extension or name to a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.TrimPrefix(strings.ToLower(s), ".")); f {
	case "", "gv":
		return FormatDOT, nil
	case FormatDOT, FormatSVG, FormatPNG:
		return f, nil
	}
	return "", fmt.Errorf("unknown graph format %q", s)
}

func (f Format) graphviz() graphviz.Format {
	switch f {
	case FormatSVG:
		return graphviz.SVG
	case FormatPNG:
		return graphviz.PNG
	}
	return graphviz.XDOT
}

// GraphGenerator draws graphs from a loaded workspace.
type GraphGenerator struct {
	w *crm.Workspace
}

func NewGraphGenerator(w *crm.Workspace) *GraphGenerator {
	return &GraphGenerator{w: w}
}

// build runs fill against a fresh graph and renders it.
func render(ctx context.Context, format Format, fill func(*cgraph.Graph) error) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create graphviz instance: %w", err)
	}
	defer func() { _ = gv.Close() }()

	graph, err := gv.Graph()
	if err != nil {
		return nil, fmt.Errorf("failed to create graph: %w", err)
	}
	defer func() { _ = graph.Close() }()

	if err := fill(graph); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := gv.Render(ctx, graph, format.graphviz(), &buf); err != nil {
		return nil, fmt.Errorf("failed to render graph: %w", err)
	}
	return buf.Bytes(), nil
}

// GeneratePipelineGraph draws the kanban stages left to right with each
// deal hanging off its stage.
func (g *GraphGenerator) GeneratePipelineGraph(ctx context.Context, format Format) ([]byte, error) {
	board := g.w.Board("")

	return render(ctx, format, func(graph *cgraph.Graph) error {
		graph.SetLabel("Deal Pipeline")
		graph.SetRankDir(cgraph.LRRank)

		var prev *cgraph.Node
		for i, bucket := range board {
			stage, err := graph.CreateNodeByName(fmt.Sprintf("stage_%d", i))
			if err != nil {
				return fmt.Errorf("failed to create stage node: %w", err)
			}
			stage.SetLabel(fmt.Sprintf("%s\n%d deals · $%s", bucket.Name, bucket.Count, humanize.Commaf(bucket.Total)))
			stage.SetShape("box")
			stage.SetStyle("filled")
			stage.SetFillColor("lightblue")

			if prev != nil {
				if _, err := graph.CreateEdgeByName("next", prev, stage); err != nil {
					return fmt.Errorf("failed to create edge: %w", err)
				}
			}
			prev = stage

			for _, deal := range bucket.Items {
				node, err := graph.CreateNodeByName(fmt.Sprintf("deal_%d", deal.ID))
				if err != nil {
					return fmt.Errorf("failed to create deal node: %w", err)
				}
				node.SetLabel(fmt.Sprintf("%s\n$%s", deal.Title, humanize.Commaf(deal.Value)))
				node.SetShape("note")
				edge, err := graph.CreateEdgeByName("holds", stage, node)
				if err != nil {
					return fmt.Errorf("failed to create edge: %w", err)
				}
				edge.SetStyle("dotted")
			}
		}
		return nil
	})
}

// GenerateAccountGraph draws companies, their contacts, and the deals
// attached to each.
func (g *GraphGenerator) GenerateAccountGraph(ctx context.Context, format Format) ([]byte, error) {
	companies := g.w.Companies.Items()
	contacts := g.w.Contacts.Items()
	deals := g.w.Deals.Items()

	return render(ctx, format, func(graph *cgraph.Graph) error {
		graph.SetLabel("Accounts")

		companyNodes := make(map[string]*cgraph.Node)
		companyByID := make(map[int64]*cgraph.Node)
		for _, company := range companies {
			node, err := graph.CreateNodeByName(fmt.Sprintf("company_%d", company.ID))
			if err != nil {
				return fmt.Errorf("failed to create company node: %w", err)
			}
			node.SetLabel(fmt.Sprintf("%s\n(%s)", company.Name, company.Industry))
			node.SetShape("box")
			node.SetStyle("filled")
			node.SetFillColor("lightblue")
			companyNodes[strings.ToLower(company.Name)] = node
			companyByID[company.ID] = node
		}

		contactNodes := make(map[int64]*cgraph.Node)
		for _, contact := range contacts {
			node, err := graph.CreateNodeByName(fmt.Sprintf("contact_%d", contact.ID))
			if err != nil {
				return fmt.Errorf("failed to create contact node: %w", err)
			}
			node.SetLabel(fmt.Sprintf("%s\n%s", contact.Name, contact.Email))
			node.SetShape("ellipse")
			node.SetStyle("filled")
			node.SetFillColor("lightgreen")
			contactNodes[contact.ID] = node

			companyNode, ok := companyNodes[strings.ToLower(contact.Company)]
			if contact.CompanyID != nil {
				if byID, found := companyByID[*contact.CompanyID]; found {
					companyNode, ok = byID, true
				}
			}
			if ok {
				edge, err := graph.CreateEdgeByName("works_at", node, companyNode)
				if err != nil {
					return fmt.Errorf("failed to create edge: %w", err)
				}
				edge.SetLabel("works at")
				edge.SetStyle("dashed")
			}
		}

		for _, deal := range deals {
			node, err := graph.CreateNodeByName(fmt.Sprintf("deal_%d", deal.ID))
			if err != nil {
				return fmt.Errorf("failed to create deal node: %w", err)
			}
			node.SetLabel(fmt.Sprintf("%s\n$%s\n(%s)", deal.Title, humanize.Commaf(deal.Value), deal.Stage))
			node.SetShape("diamond")
			node.SetStyle("filled")
			node.SetFillColor(stageColor(deal))

			if companyNode, ok := companyNodes[strings.ToLower(deal.Company)]; ok {
				edge, err := graph.CreateEdgeByName("deal_with", companyNode, node)
				if err != nil {
					return fmt.Errorf("failed to create edge: %w", err)
				}
				edge.SetLabel("deal")
			}
			if deal.ContactID != nil {
				if contactNode, ok := contactNodes[*deal.ContactID]; ok {
					edge, err := graph.CreateEdgeByName("contact_for", contactNode, node)
					if err != nil {
						return fmt.Errorf("failed to create edge: %w", err)
					}
					edge.SetLabel("contact")
					edge.SetStyle("dotted")
				}
			}
		}
		return nil
	})
}

func stageColor(d models.Deal) string {
	switch d.Stage {
	case models.StageClosedWon, models.StageClosed:
		return "palegreen"
	case models.StageClosedLost:
		return "lightpink"
	}
	return "lightyellow"
}
