package classifier

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"outreach-service/internal/core/textnorm"

	"gopkg.in/yaml.v3"
)

//go:embed owner_keywords.yaml
var defaultKeywordsYAML []byte

// Keywords - словари классификатора. Хранятся как данные, а не как код.
type Keywords struct {
	PrivateAdvertiserTypes []string `yaml:"private_advertiser_types"`
	AgencyAdvertiserTypes  []string `yaml:"agency_advertiser_types"`
	PrivateContactTypes    []string `yaml:"private_contact_types"`
	PreclassifiedPrivate   []string `yaml:"preclassified_private"`
	PreclassifiedAgency    []string `yaml:"preclassified_agency"`
	LegalSuffixes          []string `yaml:"legal_suffixes"`
	BrandKeywords          []string `yaml:"brand_keywords"`
	PrivateSalutations     []string `yaml:"private_salutations"`
	AgencyKeywords         []string `yaml:"agency_keywords"`
	PrivateKeywords        []string `yaml:"private_keywords"`
}

// DefaultKeywords возвращает встроенный итальянский словарь
func DefaultKeywords() *Keywords {
	kw, err := ParseKeywords(defaultKeywordsYAML)
	if err != nil {
		panic(fmt.Sprintf("classifier: embedded keywords are invalid: %v", err))
	}
	return kw
}

// LoadKeywords читает словарь из файла. Пустой путь - встроенный словарь.
func LoadKeywords(path string) (*Keywords, error) {
	if path == "" {
		return DefaultKeywords(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read keywords file %s: %w", path, err)
	}
	return ParseKeywords(data)
}

func ParseKeywords(data []byte) (*Keywords, error) {
	var kw Keywords
	if err := yaml.Unmarshal(data, &kw); err != nil {
		return nil, fmt.Errorf("failed to parse keywords: %w", err)
	}
	if len(kw.AgencyKeywords) == 0 || len(kw.PrivateKeywords) == 0 {
		return nil, fmt.Errorf("keywords: agency_keywords and private_keywords must not be empty")
	}
	kw.normalize()
	return &kw, nil
}

func (k *Keywords) normalize() {
	for _, list := range []*[]string{
		&k.PrivateAdvertiserTypes, &k.AgencyAdvertiserTypes, &k.PrivateContactTypes,
		&k.PreclassifiedPrivate, &k.PreclassifiedAgency, &k.LegalSuffixes,
		&k.BrandKeywords, &k.PrivateSalutations, &k.AgencyKeywords, &k.PrivateKeywords,
	} {
		cleaned := make([]string, 0, len(*list))
		for _, v := range *list {
			v = strings.Join(textnorm.Words(textnorm.Fold(v)), " ")
			if v != "" {
				cleaned = append(cleaned, v)
			}
		}
		*list = cleaned
	}
}

func contains(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}
