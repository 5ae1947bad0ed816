// Package classifier определяет тип продавца (частник или агентство) по шумным сигналам порталов.
//
// Правила проверяются по порядку, срабатывает первое подходящее. Неоднозначность
// не является ошибкой: она выражается уровнем уверенности и текстом обоснования.
package classifier

import (
	"fmt"
	"sort"
	"strings"

	"outreach-service/internal/core/domain"
	"outreach-service/internal/core/textnorm"
)

// Result - итог классификации
type Result struct {
	OwnerType  domain.OwnerType  `json:"owner_type"`
	AgencyName *string           `json:"agency_name,omitempty"`
	Confidence domain.Confidence `json:"confidence"`
	Reasoning  string            `json:"reasoning"`
	Rule       string            `json:"rule"`
}

// Rule - пара "предикат / результат"
type Rule struct {
	Name  string
	Apply func(s *signalView) (Result, bool)
}

// signalView - сигналы, уже приведённые к сравнимому виду
type signalView struct {
	raw            domain.OwnerSignals
	preclassified  string
	advertiserType string
	contactType    string
	agencyName     string
	advertiserName string
	agencyID       string
	text           string
}

type Classifier struct {
	kw    *Keywords
	rules []Rule
}

// New собирает классификатор. nil - встроенный словарь.
func New(kw *Keywords) *Classifier {
	if kw == nil {
		kw = DefaultKeywords()
	}
	c := &Classifier{kw: kw}
	c.rules = []Rule{
		{Name: "preclassified", Apply: c.preclassified},
		{Name: "agency_name", Apply: c.agencyNameHeuristic},
		{Name: "advertiser_private", Apply: c.advertiserPrivate},
		{Name: "advertiser_agency", Apply: c.advertiserAgency},
		{Name: "contact_private", Apply: c.contactPrivate},
		{Name: "agency_id_and_name", Apply: c.agencyIDAndName},
		{Name: "keywords", Apply: c.keywordScan},
		{Name: "agency_id_fallback", Apply: c.agencyIDFallback},
		{Name: "default_private", Apply: c.defaultPrivate},
	}
	return c
}

// RuleNames возвращает порядок правил
func (c *Classifier) RuleNames() []string {
	names := make([]string, 0, len(c.rules))
	for _, r := range c.rules {
		names = append(names, r.Name)
	}
	return names
}

func (c *Classifier) Classify(signals domain.OwnerSignals) Result {
	view := newSignalView(signals)
	for _, rule := range c.rules {
		if res, ok := rule.Apply(view); ok {
			res.Rule = rule.Name
			return res
		}
	}
	// недостижимо: последнее правило срабатывает всегда
	return c.defaultPrivateResult()
}

func newSignalView(s domain.OwnerSignals) *signalView {
	return &signalView{
		raw:            s,
		preclassified:  canonical(s.PreclassifiedOwnerType),
		advertiserType: canonical(s.AdvertiserType),
		contactType:    canonical(s.ContactType),
		agencyName:     strings.TrimSpace(s.AgencyName),
		advertiserName: strings.TrimSpace(s.AdvertiserName),
		agencyID:       strings.TrimSpace(s.AgencyID),
		text:           canonical(s.Title + " " + s.Description + " " + s.ContactBlock),
	}
}

// canonical - нижний регистр, без диакритики, слова через один пробел
func canonical(s string) string {
	return strings.Join(textnorm.Words(textnorm.Fold(s)), " ")
}

func (c *Classifier) preclassified(s *signalView) (Result, bool) {
	switch {
	case s.preclassified == "":
		return Result{}, false
	case contains(c.kw.PreclassifiedAgency, s.preclassified):
		return Result{
			OwnerType:  domain.OwnerAgency,
			AgencyName: firstNonEmpty(s.agencyName, s.advertiserName),
			Confidence: domain.ConfidenceMedium,
			Reasoning:  fmt.Sprintf("source pre-classified owner as %q", s.raw.PreclassifiedOwnerType),
		}, true
	case contains(c.kw.PreclassifiedPrivate, s.preclassified):
		return Result{
			OwnerType:  domain.OwnerPrivate,
			Confidence: domain.ConfidenceMedium,
			Reasoning:  fmt.Sprintf("source pre-classified owner as %q", s.raw.PreclassifiedOwnerType),
		}, true
	}
	return Result{}, false
}

// agencyNameHeuristic проверяется раньше флагов "частник": агентства часто
// публикуются с типом "privato", но имя их выдаёт.
func (c *Classifier) agencyNameHeuristic(s *signalView) (Result, bool) {
	if s.agencyName == "" {
		return Result{}, false
	}
	name := canonical(s.agencyName)
	if name == "" || c.isPrivateSalutation(name) {
		return Result{}, false
	}

	var reason string
	switch {
	case c.hasLegalSuffix(name):
		reason = fmt.Sprintf("agency name %q carries a legal-entity suffix", s.agencyName)
	case c.hasBrandKeyword(name):
		reason = fmt.Sprintf("agency name %q contains a real-estate brand keyword", s.agencyName)
	default:
		reason = fmt.Sprintf("agency name %q is present and is not a private salutation", s.agencyName)
	}
	return Result{
		OwnerType:  domain.OwnerAgency,
		AgencyName: &s.agencyName,
		Confidence: domain.ConfidenceHigh,
		Reasoning:  reason,
	}, true
}

func (c *Classifier) advertiserPrivate(s *signalView) (Result, bool) {
	if s.advertiserType == "" || !contains(c.kw.PrivateAdvertiserTypes, s.advertiserType) {
		return Result{}, false
	}
	return Result{
		OwnerType:  domain.OwnerPrivate,
		Confidence: domain.ConfidenceHigh,
		Reasoning:  fmt.Sprintf("advertiser type is %q", s.raw.AdvertiserType),
	}, true
}

func (c *Classifier) advertiserAgency(s *signalView) (Result, bool) {
	if s.advertiserType == "" || !contains(c.kw.AgencyAdvertiserTypes, s.advertiserType) {
		return Result{}, false
	}
	return Result{
		OwnerType:  domain.OwnerAgency,
		AgencyName: firstNonEmpty(s.agencyName, s.advertiserName),
		Confidence: domain.ConfidenceHigh,
		Reasoning:  fmt.Sprintf("advertiser type is %q", s.raw.AdvertiserType),
	}, true
}

func (c *Classifier) contactPrivate(s *signalView) (Result, bool) {
	if s.contactType == "" || !contains(c.kw.PrivateContactTypes, s.contactType) {
		return Result{}, false
	}
	return Result{
		OwnerType:  domain.OwnerPrivate,
		Confidence: domain.ConfidenceHigh,
		Reasoning:  fmt.Sprintf("contact type is %q", s.raw.ContactType),
	}, true
}

func (c *Classifier) agencyIDAndName(s *signalView) (Result, bool) {
	if s.agencyID == "" || s.agencyName == "" {
		return Result{}, false
	}
	return Result{
		OwnerType:  domain.OwnerAgency,
		AgencyName: &s.agencyName,
		Confidence: domain.ConfidenceHigh,
		Reasoning:  fmt.Sprintf("agency id %s with agency name %q", s.agencyID, s.agencyName),
	}, true
}

// keywordScan: агентские слова важнее частных. Частные фразы вырезаются
// из текста перед поиском агентских, чтобы "no agenzie" не считалось агентским.
// Каждый фрагмент текста засчитывается одной фразе, самой длинной.
func (c *Classifier) keywordScan(s *signalView) (Result, bool) {
	if strings.TrimSpace(s.text) == "" {
		return Result{}, false
	}

	privateHits, masked := matchDistinct(s.text, c.kw.PrivateKeywords)
	agencyHits, _ := matchDistinct(masked, c.kw.AgencyKeywords)

	switch {
	case len(agencyHits) > 0:
		return Result{
			OwnerType:  domain.OwnerAgency,
			AgencyName: firstNonEmpty(s.agencyName, s.advertiserName),
			Confidence: confidenceByHits(len(agencyHits)),
			Reasoning:  fmt.Sprintf("agency keywords found: %s", strings.Join(agencyHits, ", ")),
		}, true
	case len(privateHits) > 0:
		return Result{
			OwnerType:  domain.OwnerPrivate,
			Confidence: confidenceByHits(len(privateHits)),
			Reasoning:  fmt.Sprintf("private keywords found: %s", strings.Join(privateHits, ", ")),
		}, true
	}
	return Result{}, false
}

func (c *Classifier) agencyIDFallback(s *signalView) (Result, bool) {
	if s.agencyID == "" {
		return Result{}, false
	}
	return Result{
		OwnerType:  domain.OwnerAgency,
		AgencyName: firstNonEmpty(s.advertiserName),
		Confidence: domain.ConfidenceLow,
		Reasoning:  fmt.Sprintf("only an agency id (%s) is known", s.agencyID),
	}, true
}

func (c *Classifier) defaultPrivate(_ *signalView) (Result, bool) {
	return c.defaultPrivateResult(), true
}

func (c *Classifier) defaultPrivateResult() Result {
	return Result{
		OwnerType:  domain.OwnerPrivate,
		Confidence: domain.ConfidenceLow,
		Reasoning:  "no agency signals found",
		Rule:       "default_private",
	}
}

func (c *Classifier) isPrivateSalutation(name string) bool {
	if contains(c.kw.PrivateSalutations, name) {
		return true
	}
	// "sig mario rossi", "privato rossi": имя начинается с обращения
	for _, salutation := range c.kw.PrivateSalutations {
		if strings.HasPrefix(name, salutation+" ") {
			return true
		}
	}
	return false
}

func (c *Classifier) hasLegalSuffix(name string) bool {
	for _, token := range mergeInitials(strings.Fields(name)) {
		if contains(c.kw.LegalSuffixes, token) {
			return true
		}
	}
	return false
}

func (c *Classifier) hasBrandKeyword(name string) bool {
	for _, brand := range c.kw.BrandKeywords {
		if textnorm.ContainsPhrase(name, brand) {
			return true
		}
	}
	return false
}

// mergeInitials склеивает подряд идущие однобуквенные токены: "s r l" -> "srl"
func mergeInitials(tokens []string) []string {
	merged := make([]string, 0, len(tokens))
	var run strings.Builder
	flush := func() {
		if run.Len() > 0 {
			merged = append(merged, run.String())
			run.Reset()
		}
	}
	for _, t := range tokens {
		if len(t) == 1 {
			run.WriteString(t)
			continue
		}
		flush()
		merged = append(merged, t)
	}
	flush()
	return merged
}

// matchDistinct ищет фразы от длинных к коротким и вырезает найденные,
// так что "agenzia immobiliare" не засчитывается ещё и как "agenzia".
// Возвращает найденные фразы и текст без них.
func matchDistinct(text string, phrases []string) ([]string, string) {
	ordered := append([]string(nil), phrases...)
	sort.SliceStable(ordered, func(i, j int) bool { return len(ordered[i]) > len(ordered[j]) })

	var hits []string
	for _, phrase := range ordered {
		if textnorm.ContainsPhrase(text, phrase) {
			hits = append(hits, phrase)
			text = maskPhrase(text, phrase)
		}
	}
	return hits, text
}

func maskPhrase(text, phrase string) string {
	for {
		idx := textnorm.PhraseIndex(text, phrase)
		if idx < 0 {
			return text
		}
		text = text[:idx] + strings.Repeat(" ", len(phrase)) + text[idx+len(phrase):]
	}
}

func confidenceByHits(n int) domain.Confidence {
	if n >= 2 {
		return domain.ConfidenceHigh
	}
	return domain.ConfidenceMedium
}

func firstNonEmpty(values ...string) *string {
	for _, v := range values {
		if v != "" {
			v := v
			return &v
		}
	}
	return nil
}
