package neo4j

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

const (
	nodePropertiesQuery = `
CALL db.schema.nodeTypeProperties()
YIELD nodeLabels, propertyName, propertyTypes
RETURN nodeLabels, propertyName, propertyTypes`

	relPropertiesQuery = `
CALL db.schema.relTypeProperties()
YIELD relType, propertyName, propertyTypes
RETURN relType, propertyName, propertyTypes`

	relationshipsQuery = `
MATCH (a)-[r]->(b)
WITH labels(a) AS from, type(r) AS rel, labels(b) AS to
LIMIT 10000
RETURN DISTINCT from, rel, to`
)

// propertySet collects property names and types per label or rel type.
type propertySet map[string]map[string]string

func (p propertySet) add(owner, name string, types []any) {
	if owner == "" {
		return
	}
	props, ok := p[owner]
	if !ok {
		props = map[string]string{}
		p[owner] = props
	}
	if name == "" {
		return
	}
	props[name] = schemaType(types)
}

func (p propertySet) render(b *strings.Builder) {
	owners := make([]string, 0, len(p))
	for owner := range p {
		owners = append(owners, owner)
	}
	sort.Strings(owners)

	for _, owner := range owners {
		props := p[owner]
		names := make([]string, 0, len(props))
		for name := range props {
			names = append(names, name)
		}
		sort.Strings(names)

		parts := make([]string, 0, len(names))
		for _, name := range names {
			parts = append(parts, name+": "+props[name])
		}
		fmt.Fprintf(b, "%s {%s}\n", owner, strings.Join(parts, ", "))
	}
}

func (g *Graph) introspect(ctx context.Context) (string, error) {
	run := func(q string) ([]*neo4j.Record, error) {
		res, err := neo4j.ExecuteQuery(ctx, g.driver, q, nil,
			neo4j.EagerResultTransformer,
			neo4j.ExecuteQueryWithDatabase(g.database),
			neo4j.ExecuteQueryWithReadersRouting(),
		)
		if err != nil {
			return nil, fmt.Errorf("schema introspection: %w", err)
		}
		return res.Records, nil
	}

	nodeRecords, err := run(nodePropertiesQuery)
	if err != nil {
		return "", err
	}
	nodes := propertySet{}
	for _, rec := range nodeRecords {
		labels, _, _ := neo4j.GetRecordValue[[]any](rec, "nodeLabels")
		name, _, _ := neo4j.GetRecordValue[string](rec, "propertyName")
		types, _, _ := neo4j.GetRecordValue[[]any](rec, "propertyTypes")
		nodes.add(joinLabels(labels), name, types)
	}

	relRecords, err := run(relPropertiesQuery)
	if err != nil {
		return "", err
	}
	rels := propertySet{}
	for _, rec := range relRecords {
		relType, _, _ := neo4j.GetRecordValue[string](rec, "relType")
		name, _, _ := neo4j.GetRecordValue[string](rec, "propertyName")
		types, _, _ := neo4j.GetRecordValue[[]any](rec, "propertyTypes")
		rels.add(cleanRelType(relType), name, types)
	}

	patternRecords, err := run(relationshipsQuery)
	if err != nil {
		return "", err
	}
	patterns := make([]string, 0, len(patternRecords))
	seen := map[string]bool{}
	for _, rec := range patternRecords {
		from, _, _ := neo4j.GetRecordValue[[]any](rec, "from")
		rel, _, _ := neo4j.GetRecordValue[string](rec, "rel")
		to, _, _ := neo4j.GetRecordValue[[]any](rec, "to")
		p := fmt.Sprintf("(:%s)-[:%s]->(:%s)", joinLabels(from), rel, joinLabels(to))
		if !seen[p] {
			seen[p] = true
			patterns = append(patterns, p)
		}
	}
	sort.Strings(patterns)

	return formatSchema(nodes, rels, patterns), nil
}

func formatSchema(nodes, rels propertySet, patterns []string) string {
	var b strings.Builder
	b.WriteString("Node properties:\n")
	nodes.render(&b)
	b.WriteString("Relationship properties:\n")
	rels.render(&b)
	b.WriteString("The relationships:\n")
	for _, p := range patterns {
		b.WriteString(p)
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

func joinLabels(labels []any) string {
	parts := make([]string, 0, len(labels))
	for _, l := range labels {
		if s, ok := l.(string); ok {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ":")
}

// cleanRelType turns ":`ACTED_IN`" into "ACTED_IN".
func cleanRelType(relType string) string {
	return strings.Trim(strings.TrimPrefix(relType, ":"), "`")
}

// schemaType maps procedure type names ("String", "Long", "StringArray") to
// the upper-case names used in prompts.
func schemaType(types []any) string {
	if len(types) == 0 {
		return "ANY"
	}
	t, _ := types[0].(string)
	switch {
	case strings.HasSuffix(t, "Array"):
		return "LIST"
	case t == "Long" || t == "Integer":
		return "INTEGER"
	case t == "Double" || t == "Float":
		return "FLOAT"
	case t == "":
		return "ANY"
	default:
		return strings.ToUpper(t)
	}
}
