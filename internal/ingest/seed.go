package ingest

import (
	"strconv"

	"github.com/yungbote/triage-graph/internal/dataset"
	"github.com/yungbote/triage-graph/internal/domain"
)

type seedConcept struct {
	id     string
	term   string
	typeID string
}

// Symptoms carry a synonym; conditions carry the FSN that condition expansion reports.
var seedConcepts = []seedConcept{
	{"29857009", "Chest pain", domain.DescriptionTypeIDSynonym},
	{"422587007", "Nausea", domain.DescriptionTypeIDSynonym},
	{"162059005", "Upset stomach", domain.DescriptionTypeIDSynonym},
	{"404640003", "Dizziness", domain.DescriptionTypeIDSynonym},
	{"239516002", "Knee pain", domain.DescriptionTypeIDSynonym},
	{"125667009", "Bruising", domain.DescriptionTypeIDSynonym},

	{"22298006", "Myocardial infarction", domain.DescriptionTypeIDFSN},
	{"235595009", "Gastroesophageal reflux disease", domain.DescriptionTypeIDFSN},
	{"73410007", "Panic attack", domain.DescriptionTypeIDFSN},
	{"300860001", "Sprain of knee", domain.DescriptionTypeIDFSN},
	{"239720002", "Osteoarthritis of knee", domain.DescriptionTypeIDFSN},
}

// condition -> symptom
var seedAssociations = [][2]string{
	{"22298006", "29857009"},
	{"22298006", "422587007"},
	{"22298006", "404640003"},
	{"235595009", "29857009"},
	{"235595009", "162059005"},
	{"300860001", "239516002"},
	{"300860001", "125667009"},
	{"239720002", "239516002"},
}

// SeedDataset returns a small cardiac, gastric and knee graph as three in-memory extracts.
func SeedDataset() (concepts, descriptions, relationships *dataset.SliceSource) {
	conceptRows := make([][]string, 0, len(seedConcepts))
	descRows := make([][]string, 0, len(seedConcepts))
	for _, c := range seedConcepts {
		conceptRows = append(conceptRows, []string{c.id, "1"})
		descRows = append(descRows, []string{c.id + "01", "1", c.id, c.term, c.typeID})
	}

	relRows := make([][]string, 0, len(seedAssociations))
	for i, a := range seedAssociations {
		relRows = append(relRows, []string{
			strconv.Itoa(900000 + i), "1", a[0], a[1], domain.RelTypeAssociatedWith,
		})
	}

	concepts = dataset.NewSliceSource([]string{dataset.ColID, dataset.ColActive}, conceptRows)
	descriptions = dataset.NewSliceSource(
		[]string{dataset.ColID, dataset.ColActive, dataset.ColConceptID, dataset.ColTerm, dataset.ColTypeID},
		descRows,
	)
	relationships = dataset.NewSliceSource(
		[]string{dataset.ColID, dataset.ColActive, dataset.ColSourceID, dataset.ColDestinationID, dataset.ColTypeID},
		relRows,
	)
	return concepts, descriptions, relationships
}
