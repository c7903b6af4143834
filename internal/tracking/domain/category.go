package domain

import (
	"errors"
	"strings"
)

var (
	ErrUnknownCategory = errors.New("unknown category")
)

// Category is the initiative type a task belongs to.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryShapeUp
	CategoryExperiment
	CategoryRoadmap
	CategoryOther
)

// Categories lists the supported categories in board order.
var Categories = []Category{
	CategoryShapeUp,
	CategoryExperiment,
	CategoryRoadmap,
	CategoryOther,
}

var categoryNames = map[Category]string{
	CategoryShapeUp:    "ShapeUp",
	CategoryExperiment: "Experiment",
	CategoryRoadmap:    "Roadmap",
	CategoryOther:      "Other",
}

var categoryLabels = map[Category]string{
	CategoryShapeUp:    "Shape-up",
	CategoryExperiment: "실험",
	CategoryRoadmap:    "IS팀",
	CategoryOther:      "etc",
}

var categoryDescriptions = map[Category]string{
	CategoryShapeUp:    "Pitch 및 주요 기능 설계 프로세스",
	CategoryExperiment: "가설 검증 및 프로토타입 실험",
	CategoryRoadmap:    "내부 운영 도구 및 플랫폼 개발 로드맵",
	CategoryOther:      "기타 백로그 및 전사 과제",
}

// categoryValues maps lowered code names, display labels and source aliases.
var categoryValues = map[string]Category{
	"shapeup":         CategoryShapeUp,
	"shape-up":        CategoryShapeUp,
	"shape up":        CategoryShapeUp,
	"pitch":           CategoryShapeUp,
	"experiment":      CategoryExperiment,
	"experiments":     CategoryExperiment,
	"problems":        CategoryExperiment,
	"실험":              CategoryExperiment,
	"roadmap":         CategoryRoadmap,
	"is팀":             CategoryRoadmap,
	"is team":         CategoryRoadmap,
	"other":           CategoryOther,
	"etc":             CategoryOther,
	"global problems": CategoryOther,
}

// ParseCategory resolves a source category label to a Category.
func ParseCategory(s string) (Category, error) {
	c, ok := categoryValues[strings.ToLower(NormalizeText(s))]
	if !ok {
		return CategoryUnknown, ErrUnknownCategory
	}
	return c, nil
}

// String returns the code name of the category.
func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return "unknown"
}

// Label returns the display label used by the board.
func (c Category) Label() string {
	if label, ok := categoryLabels[c]; ok {
		return label
	}
	return "unknown"
}

// Description returns the board section description.
func (c Category) Description() string {
	return categoryDescriptions[c]
}

// IsValid returns true for the four supported categories.
func (c Category) IsValid() bool {
	_, ok := categoryNames[c]
	return ok
}

// MarshalText encodes the category as its code name.
func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText accepts any label ParseCategory accepts.
func (c *Category) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
