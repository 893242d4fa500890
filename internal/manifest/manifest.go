// Package manifest loads resource manifests into a graph. It is the
// external loader collaborator in front of the reconciler: plain YAML
// documents, structured references, no template language and no string
// interpolation.
package manifest

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/anneal-io/anneal/internal/graph"
)

// A manifest is a list of resource declarations:
//
//	resources:
//	  - kind: keyvault
//	    name: main
//	    when: true
//	    dependsOn: [identity.app]
//	    sensitiveProperties: [adminKey]
//	    properties:
//	      tenantId: "00000000-..."
//	      certificate:
//	        ref: certificate.signing
//	        output: thumbprint
//
// A property value is a scalar, a list, a map, or a reference: a map with
// a "ref" key (kind.name) and an "output" key naming the target's output.
type document struct {
	Resources []resourceDoc `yaml:"resources"`
}

type resourceDoc struct {
	Kind       string         `yaml:"kind"`
	Name       string         `yaml:"name"`
	When       *bool          `yaml:"when"`
	DependsOn  []string       `yaml:"dependsOn"`
	Sensitive  []string       `yaml:"sensitiveProperties"`
	Properties map[string]any `yaml:"properties"`
}

// Load reads a manifest file and builds the declared graph. References are
// not resolved here; callers run graph.ResolveReferences (directly or via
// the engine) to prune and validate.
func Load(path string) (*graph.Graph, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return Parse(raw)
}

// Parse builds a graph from manifest bytes.
func Parse(raw []byte) (*graph.Graph, error) {
	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	g := graph.New()
	for _, res := range doc.Resources {
		node, err := buildNode(res)
		if err != nil {
			return nil, err
		}
		if err := g.Add(node); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func buildNode(res resourceDoc) (*graph.Node, error) {
	if res.Kind == "" || res.Name == "" {
		return nil, fmt.Errorf("resource %q.%q: kind and name are required", res.Kind, res.Name)
	}

	node := graph.NewNode(res.Kind, res.Name)
	if res.When != nil {
		node.Enabled = *res.When
	}
	node.Sensitive = res.Sensitive

	for _, dep := range res.DependsOn {
		id, err := graph.ParseIdentity(dep)
		if err != nil {
			return nil, fmt.Errorf("resource %s: dependsOn: %w", node.Identity, err)
		}
		node.DependOn(id)
	}

	for name, raw := range res.Properties {
		v, err := buildValue(node.Identity, name, raw)
		if err != nil {
			return nil, err
		}
		node.Set(name, v)
	}
	return node, nil
}

// buildValue converts decoded YAML into a graph.Value, turning
// {ref, output} maps into references and recursing into collections.
func buildValue(owner graph.Identity, property string, raw any) (graph.Value, error) {
	switch val := raw.(type) {
	case map[string]any:
		if refName, ok := val["ref"].(string); ok {
			return buildRef(owner, property, refName, val)
		}
		out := make(map[string]graph.Value, len(val))
		for k, elem := range val {
			v, err := buildValue(owner, property, elem)
			if err != nil {
				return graph.Value{}, err
			}
			out[k] = v
		}
		return graph.Lit(out), nil
	case []any:
		out := make([]graph.Value, len(val))
		for i, elem := range val {
			v, err := buildValue(owner, property, elem)
			if err != nil {
				return graph.Value{}, err
			}
			out[i] = v
		}
		return graph.Lit(out), nil
	default:
		return graph.Lit(raw), nil
	}
}

func buildRef(owner graph.Identity, property, refName string, val map[string]any) (graph.Value, error) {
	for k := range val {
		if k != "ref" && k != "output" {
			return graph.Value{}, fmt.Errorf(
				"resource %s: property %q: reference has unexpected key %q", owner, property, k)
		}
	}
	target, err := graph.ParseIdentity(refName)
	if err != nil {
		return graph.Value{}, fmt.Errorf("resource %s: property %q: %w", owner, property, err)
	}
	output, _ := val["output"].(string)
	if output == "" {
		return graph.Value{}, fmt.Errorf(
			"resource %s: property %q: reference to %s needs an output name", owner, property, target)
	}
	return graph.Ref(target, output), nil
}
