package salon

import "strings"

// Word stems used to read a bare haircut request. Matching is by prefix on
// normalized tokens, so "стрижку", "niña" and "cortarme" all hit.
var (
	haircutWords = []string{"стриж", "подстри", "corte", "cortar", "haircut"}
	beardWords   = []string{"бород", "barba", "beard"}
	femaleWords  = []string{"жен", "дев", "chica", "girl", "woman", "women", "mujer", "senora", "dama"}
	kidsWords    = []string{"дет", "реб", "мальчик", "nin", "kid", "peque", "child"}
	maleWords    = []string{"муж", "парн", "hombre", "caballer", "chico", "boy"}
	maleExact    = []string{"man", "men", "mens", "male", "guy"}
	fillerWords  = []string{
		"а", "и", "с", "со", "в", "на", "для", "мне", "меня", "хочу", "хотел", "хотела", "нужна", "нужно",
		"можно", "записаться", "волос", "волосы", "запишите", "пожалуйста", "просто", "обычная", "обычную", "простая", "простую",
		"a", "y", "con", "al", "de", "del", "el", "la", "las", "los", "un", "una", "para", "por", "favor",
		"quiero", "quisiera", "me", "mi", "normal", "simple", "solo", "cita", "pelo",
		"i", "and", "with", "my", "the", "for", "please", "want", "need", "just", "regular", "get", "hair",
	}
)

// Audience tags the generic haircut resolves through.
const (
	TagMenCuts     = "men_cuts"
	TagWomenCuts   = "women_cuts"
	TagKids        = "kids"
	TagBarberBeard = "barber_beard"
)

type haircutSignals struct {
	haircut, beard, female, kids bool
	modified                     bool
}

func readHaircutSignals(tokens []string) haircutSignals {
	var s haircutSignals
	for _, tok := range tokens {
		switch {
		case hasPrefixAny(tok, haircutWords):
			s.haircut = true
		case hasPrefixAny(tok, beardWords):
			s.beard = true
		case hasPrefixAny(tok, femaleWords):
			s.female = true
		case hasPrefixAny(tok, kidsWords):
			s.kids = true
		case hasPrefixAny(tok, maleWords), contains(maleExact, tok), contains(fillerWords, tok):
		default:
			s.modified = true
		}
	}
	return s
}

func hasPrefixAny(tok string, stems []string) bool {
	for _, s := range stems {
		if strings.HasPrefix(tok, s) {
			return true
		}
	}
	return false
}

// MatchService resolves a free-text service query to a catalog entry, or nil.
//
// The chain is: a bare haircut request resolved through the audience
// defaults (beard, then female, then kids, then men); exact code or name;
// normalized keyword; keyword with bracketed qualifiers removed.
func (db *DB) MatchService(query string) *Service {
	key := strings.TrimSpace(query)
	if key == "" {
		return nil
	}

	if s := readHaircutSignals(Tokens(key)); s.haircut && !s.modified {
		var tags []string
		if s.beard {
			tags = append(tags, TagBarberBeard)
		}
		if s.female {
			tags = append(tags, TagWomenCuts)
		}
		if s.kids {
			tags = append(tags, TagKids)
		}
		for _, tag := range append(tags, TagMenCuts) {
			if svc := db.DefaultService(tag); svc != nil {
				return svc
			}
		}
	}

	if svc := db.Service(key); svc != nil {
		return svc
	}
	normalized := Normalize(key)
	for i := range db.Services {
		if Normalize(db.Services[i].Name) == normalized {
			return &db.Services[i]
		}
	}
	if svc := db.firstByKeyword(normalized); svc != nil {
		return svc
	}
	return db.firstByKeyword(Normalize(StripBrackets(key)))
}

func (db *DB) firstByKeyword(normalized string) *Service {
	if normalized == "" {
		return nil
	}
	for _, code := range db.serviceKeywords[normalized] {
		if svc := db.Service(code); svc != nil {
			return svc
		}
	}
	return nil
}

// MatchServices resolves every query and reports the ones that did not match.
func (db *DB) MatchServices(queries []string) (matched []*Service, missing []string) {
	for _, q := range queries {
		if strings.TrimSpace(q) == "" {
			continue
		}
		if svc := db.MatchService(q); svc != nil {
			matched = append(matched, svc)
			continue
		}
		missing = append(missing, q)
	}
	return matched, missing
}
