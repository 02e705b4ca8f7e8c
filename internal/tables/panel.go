package tables

import (
	"encoding/json"
	"fmt"
	"os"
)

// GenePanel is the parsed gene_panel.json document.
type GenePanel struct {
	// Name, Species and Tissue default to "Unknown" when the panel section
	// omits them.
	Name       string
	Species    string
	Tissue     string
	NumTargets int

	// Genes lists target names whose descriptor is "gene", in file order.
	Genes []string

	// HasPanel and HasTargets report which sections of the payload exist.
	HasPanel   bool
	HasTargets bool

	// Raw is the complete decoded document.
	Raw map[string]any
}

type panelDoc struct {
	Payload *struct {
		Panel *struct {
			Identity struct {
				Name *string `json:"name"`
			} `json:"identity"`
			NumGeneTargets int     `json:"num_gene_targets"`
			Species        *string `json:"species"`
			Tissue         *string `json:"tissue"`
		} `json:"panel"`
		Targets []struct {
			Type struct {
				Descriptor string `json:"descriptor"`
				Data       struct {
					Name string `json:"name"`
				} `json:"data"`
			} `json:"type"`
		} `json:"targets"`
	} `json:"payload"`
}

// ReadGenePanel reads and decodes a gene panel JSON file.
func ReadGenePanel(path string) (*GenePanel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseGenePanel(data)
}

// ParseGenePanel decodes a gene panel document.
func ParseGenePanel(data []byte) (*GenePanel, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse gene panel: %w", err)
	}
	var doc panelDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse gene panel: %w", err)
	}

	gp := &GenePanel{Name: "Unknown", Species: "Unknown", Tissue: "Unknown", Raw: raw}
	if doc.Payload == nil {
		return gp, nil
	}
	if p := doc.Payload.Panel; p != nil {
		gp.HasPanel = true
		if p.Identity.Name != nil {
			gp.Name = *p.Identity.Name
		}
		if p.Species != nil {
			gp.Species = *p.Species
		}
		if p.Tissue != nil {
			gp.Tissue = *p.Tissue
		}
		gp.NumTargets = p.NumGeneTargets
	}
	if doc.Payload.Targets != nil {
		gp.HasTargets = true
		gp.Genes = []string{}
		for _, t := range doc.Payload.Targets {
			if t.Type.Descriptor == "gene" {
				gp.Genes = append(gp.Genes, t.Type.Data.Name)
			}
		}
	}
	return gp, nil
}
