package pipeline

import "github.com/nateschmiedehaus/librarian/internal/model"

// presentKinds is the set of object kinds a response actually carries,
// derived from its assembled parts — used to check template requirements
// without the template registry needing to know assembly internals.
type presentKinds struct {
	packs    int
	claims   int
	maps     int
	episodes int
	repoFact int
}

func (p presentKinds) has(kind model.ObjectKind) bool {
	switch kind {
	case model.ObjectPack:
		return p.packs > 0
	case model.ObjectClaim:
		return p.claims > 0
	case model.ObjectMap:
		return p.maps > 0
	case model.ObjectEpisode:
		return p.episodes > 0
	case model.ObjectRepoFact:
		return p.repoFact > 0
	default:
		return false
	}
}

// computeAdequacy verifies present carries every object kind and artifact
// the template requires (§4.6 step 8). Missing items set Blocking and are
// named in MissingEvidence/Difficulties, never silently dropped.
func computeAdequacy(tmpl model.ConstructionTemplate, present presentKinds, artifacts map[string]bool) model.Adequacy {
	adequacy := model.Adequacy{Spec: tmpl.ID}

	for _, kind := range tmpl.RequiredKinds {
		if !present.has(kind) {
			adequacy.MissingEvidence = append(adequacy.MissingEvidence, string(kind))
		}
	}
	for _, artifact := range tmpl.RequiredArtifacts {
		if !artifacts[artifact] {
			adequacy.Difficulties = append(adequacy.Difficulties, "missing artifact: "+artifact)
		}
	}

	adequacy.Blocking = len(adequacy.MissingEvidence) > 0 || len(adequacy.Difficulties) > 0
	return adequacy
}
