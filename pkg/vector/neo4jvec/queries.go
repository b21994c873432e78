package neo4jvec

import (
	"fmt"
	"strings"
)

// quote escapes a label, property or index name for interpolation.
func quote(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (d *Driver) indexQuery() string {
	return fmt.Sprintf(`CREATE VECTOR INDEX %s IF NOT EXISTS
FOR (n:%s) ON n.%s
OPTIONS { indexConfig: {
  `+"`vector.dimensions`"+`: $dimensions,
  `+"`vector.similarity_function`"+`: 'cosine'
}}`, quote(d.cfg.IndexName), quote(d.cfg.NodeLabel), quote(d.cfg.EmbeddingProperty))
}

// searchQuery mirrors the retrieval shape of the movie plot store: the text
// property becomes page content and every other property, plus the node's
// element id, becomes metadata.
func (d *Driver) searchQuery() string {
	return fmt.Sprintf(`CALL db.index.vector.queryNodes($index, $k, $embedding)
YIELD node, score
RETURN node.%[1]s AS text, score,
  node { .*, %[1]s: null, %[2]s: null, _id: elementId(node) } AS metadata,
  coalesce(node.%[3]s, elementId(node)) AS id`,
		quote(d.cfg.TextProperty), quote(d.cfg.EmbeddingProperty), quote(d.cfg.IDProperty))
}

func (d *Driver) upsertQuery() string {
	return fmt.Sprintf(`UNWIND $docs AS doc
MERGE (n:%[1]s { %[2]s: doc.id })
SET n += doc.metadata, n.%[3]s = doc.content
WITH n, doc
CALL db.create.setNodeVectorProperty(n, $embeddingProperty, doc.embedding)
RETURN count(n) AS count`,
		quote(d.cfg.NodeLabel), quote(d.cfg.IDProperty), quote(d.cfg.TextProperty))
}

func (d *Driver) getQuery() string {
	return fmt.Sprintf(`MATCH (n:%[1]s)
WHERE n.%[2]s IN $ids OR elementId(n) IN $ids
RETURN coalesce(n.%[2]s, elementId(n)) AS id,
  n.%[3]s AS text,
  n.%[4]s AS embedding,
  n { .*, %[3]s: null, %[4]s: null, _id: elementId(n) } AS metadata`,
		quote(d.cfg.NodeLabel), quote(d.cfg.IDProperty), quote(d.cfg.TextProperty), quote(d.cfg.EmbeddingProperty))
}

func (d *Driver) deleteQuery() string {
	return fmt.Sprintf(`MATCH (n:%[1]s)
WHERE n.%[2]s IN $ids OR elementId(n) IN $ids
DETACH DELETE n`,
		quote(d.cfg.NodeLabel), quote(d.cfg.IDProperty))
}
