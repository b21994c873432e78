package neo4j

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Schema formatting", func() {
	It("renders node and relationship properties and patterns", func() {
		nodes := propertySet{}
		nodes.add("Movie", "title", []any{"String"})
		nodes.add("Movie", "released", []any{"Long"})
		nodes.add("Person", "name", []any{"String"})

		rels := propertySet{}
		rels.add(cleanRelType(":`ACTED_IN`"), "roles", []any{"StringArray"})

		out := formatSchema(nodes, rels, []string{"(:Person)-[:ACTED_IN]->(:Movie)"})
		Expect(out).To(Equal(`Node properties:
Movie {released: INTEGER, title: STRING}
Person {name: STRING}
Relationship properties:
ACTED_IN {roles: LIST}
The relationships:
(:Person)-[:ACTED_IN]->(:Movie)`))
	})

	It("keeps labels without properties", func() {
		nodes := propertySet{}
		nodes.add("Genre", "", nil)

		out := formatSchema(nodes, propertySet{}, nil)
		Expect(out).To(ContainSubstring("Genre {}"))
	})

	It("joins multiple labels", func() {
		Expect(joinLabels([]any{"Person", "Actor"})).To(Equal("Person:Actor"))
	})

	It("maps procedure types", func() {
		Expect(schemaType([]any{"Double"})).To(Equal("FLOAT"))
		Expect(schemaType([]any{"Boolean"})).To(Equal("BOOLEAN"))
		Expect(schemaType(nil)).To(Equal("ANY"))
	})
})
