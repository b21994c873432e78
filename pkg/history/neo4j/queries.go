package neo4j

const (
	sessionConstraintQuery = `
CREATE CONSTRAINT session_id IF NOT EXISTS
FOR (s:Session) REQUIRE s.id IS UNIQUE`

	// appendQuery upserts the session and takes its write lock (SET) before
	// reading the current tail, so appends to one session are serialised.
	appendQuery = `
MERGE (session:Session {id: $sessionId})
SET session.lastAppendedAt = datetime()

CREATE (response:Response {
  id: $id,
  createdAt: datetime(),
  source: $source,
  input: $input,
  output: $output,
  rephrasedQuestion: $rephrasedQuestion,
  cypher: $cypher,
  ids: $ids
})
CREATE (session)-[:HAS_RESPONSE]->(response)

WITH session, response

CALL {
  WITH session, response
  MATCH (session)-[lrel:LAST_RESPONSE]->(last)
  DELETE lrel
  CREATE (last)-[:NEXT]->(response)
}

CREATE (session)-[:LAST_RESPONSE]->(response)

WITH response

CALL {
  WITH response
  UNWIND $ids AS id
  MATCH (context)
  WHERE elementId(context) = id
  CREATE (response)-[:CONTEXT]->(context)
  RETURN count(*) AS count
}

RETURN DISTINCT response.id AS id, response.createdAt AS createdAt`

	// readQueryTemplate takes the window (twice) as a literal; variable
	// length bounds cannot be parameters.
	readQueryTemplate = `
MATCH (:Session {id: $sessionId})-[:LAST_RESPONSE]->(last)
MATCH path = (start)-[:NEXT*0..%d]->(last)
WHERE length(path) = %d OR NOT EXISTS { ()-[:NEXT]->(start) }
UNWIND nodes(path) AS response
RETURN response.id AS id,
  response.source AS source,
  response.input AS input,
  response.rephrasedQuestion AS rephrasedQuestion,
  response.output AS output,
  response.cypher AS cypher,
  response.createdAt AS createdAt,
  response.ids AS ids,
  [ (response)-[:CONTEXT]->(n) | elementId(n) ] AS context`

	clearQuery = `
MATCH (s:Session {id: $sessionId})-[:HAS_RESPONSE]->(r)
DETACH DELETE r`
)
