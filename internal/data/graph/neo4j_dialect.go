package graph

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/yungbote/triage-graph/internal/domain"
)

const (
	DialectMemgraph = "memgraph"
	DialectNeo4j    = "neo4j"
)

var identRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// dialect renders the statements whose syntax differs between Memgraph and Neo4j.
// Identifiers cannot be bound as parameters in DDL, so every interpolated name is checked first.
type dialect struct {
	name string
}

func newDialect(name string) (dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", DialectMemgraph:
		return dialect{name: DialectMemgraph}, nil
	case DialectNeo4j:
		return dialect{name: DialectNeo4j}, nil
	default:
		return dialect{}, fmt.Errorf("graph: unsupported dialect %q", name)
	}
}

func checkIdent(kind, s string) error {
	if !identRE.MatchString(s) {
		return fmt.Errorf("graph: invalid %s %q", kind, s)
	}
	return nil
}

func (d dialect) propertyIndexes() []string {
	if d.name == DialectNeo4j {
		return []string{
			`CREATE INDEX concept_id_idx IF NOT EXISTS FOR (c:Concept) ON (c.id)`,
			`CREATE INDEX description_id_idx IF NOT EXISTS FOR (d:Description) ON (d.id)`,
			`CREATE INDEX description_type_idx IF NOT EXISTS FOR (d:Description) ON (d.type)`,
		}
	}
	return []string{
		`CREATE INDEX ON :Concept(id)`,
		`CREATE INDEX ON :Description(id)`,
		`CREATE INDEX ON :Description(type)`,
	}
}

func (d dialect) createVectorIndex(spec VectorIndexSpec) (string, error) {
	if err := spec.Validate(); err != nil {
		return "", err
	}
	for kind, v := range map[string]string{"index name": spec.Name, "label": spec.Label, "property": spec.Property} {
		if err := checkIdent(kind, v); err != nil {
			return "", err
		}
	}
	if d.name == DialectNeo4j {
		// Neo4j sizes its vector indexes itself; capacity is enforced before the DDL runs.
		return fmt.Sprintf(
			"CREATE VECTOR INDEX `%s` FOR (n:`%s`) ON (n.`%s`) OPTIONS {indexConfig: {`vector.dimensions`: %d, `vector.similarity_function`: 'cosine'}}",
			spec.Name, spec.Label, spec.Property, spec.Dimension,
		), nil
	}
	return fmt.Sprintf(
		`CREATE VECTOR INDEX %s ON :%s(%s) WITH CONFIG {"dimension": %d, "capacity": %d, "metric": "%s"}`,
		spec.Name, spec.Label, spec.Property, spec.Dimension, spec.Capacity, spec.Metric,
	), nil
}

func (d dialect) dropVectorIndex(name string) (string, error) {
	if err := checkIdent("index name", name); err != nil {
		return "", err
	}
	if d.name == DialectNeo4j {
		return fmt.Sprintf("DROP INDEX `%s`", name), nil
	}
	return fmt.Sprintf("DROP VECTOR INDEX %s", name), nil
}

func (d dialect) listVectorIndexes() string {
	if d.name == DialectNeo4j {
		return `SHOW VECTOR INDEXES YIELD name RETURN name`
	}
	return `CALL vector_search.show_index_info() YIELD index_name RETURN index_name AS name`
}

// searchVectors joins each hit to its owning concept and leaves ordering to the index.
func (d dialect) searchVectors() string {
	if d.name == DialectNeo4j {
		return `
CALL db.index.vector.queryNodes($index, $k, $vector) YIELD node, score
MATCH (c:Concept)-[:HAS_DESCRIPTION]->(node)
RETURN node.id AS description_id, node.term AS term, node.type AS type, c.id AS concept_id, score
`
	}
	return `
CALL vector_search.search($index, $k, $vector) YIELD node, similarity
MATCH (c:Concept)-[:HAS_DESCRIPTION]->(node)
RETURN node.id AS description_id, node.term AS term, node.type AS type, c.id AS concept_id, similarity AS score
`
}

func mergeRelationshipsCypher(kind domain.EdgeKind) (string, error) {
	switch kind {
	case domain.EdgeIsA, domain.EdgeAssociatedWith:
	default:
		return "", fmt.Errorf("graph: unsupported relationship kind %q", kind)
	}
	return fmt.Sprintf(`
UNWIND $rows AS r
MATCH (a:Concept {id: r.source_id})
MATCH (b:Concept {id: r.destination_id})
MERGE (a)-[:%s]->(b)
`, kind), nil
}

const (
	upsertConceptsCypher = `
UNWIND $rows AS r
MERGE (c:Concept {id: r.id})
SET c.active = r.active
`
	createDescriptionsCypher = `
UNWIND $rows AS r
MATCH (c:Concept {id: r.concept_id})
CREATE (d:Description {id: r.id, term: r.term, type: r.type, type_id: r.type_id, embedding: r.embedding})
CREATE (c)-[:HAS_DESCRIPTION]->(d)
`
	deleteBatchCypher = `
MATCH (n)
WITH n LIMIT $limit
DETACH DELETE n
RETURN count(*) AS deleted
`
	associatedConditionsCypher = `
MATCH (s:Concept {id: $id})<-[:ASSOCIATED_WITH]-(c:Concept)-[:HAS_DESCRIPTION]->(d:Description)
WHERE d.type = $type
RETURN c.id AS concept_id, d.term AS term
`
	embeddingCensusCypher = `
MATCH (d:Description)
WHERE d.embedding IS NOT NULL
RETURN count(d) AS total, sum(CASE WHEN size(d.embedding) = $dim THEN 0 ELSE 1 END) AS mismatched
`
)

var statsCounts = []struct {
	key    string
	cypher string
}{
	{"concepts", `MATCH (c:Concept) RETURN count(c) AS n`},
	{"descriptions", `MATCH (d:Description) RETURN count(d) AS n`},
	{"is_a", `MATCH ()-[e:IS_A]->() RETURN count(e) AS n`},
	{"assoc", `MATCH ()-[e:ASSOCIATED_WITH]->() RETURN count(e) AS n`},
}

// classifyError maps server messages for vector index DDL and search onto the package sentinels.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "does not exist"),
		strings.Contains(msg, "doesn't exist"),
		strings.Contains(msg, "no such index"),
		strings.Contains(msg, "not found"):
		return fmt.Errorf("%w: %v", ErrIndexNotFound, err)
	case strings.Contains(msg, "already exists"):
		return fmt.Errorf("%w: %v", ErrIndexExists, err)
	case strings.Contains(msg, "capacity"):
		return fmt.Errorf("%w: %v", ErrIndexCapacity, err)
	case strings.Contains(msg, "dimension"):
		return fmt.Errorf("%w: %v", ErrDimensionMismatch, err)
	}
	return err
}
