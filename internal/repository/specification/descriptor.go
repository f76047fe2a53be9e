package specification

import (
	"encoding/json"
	"fmt"

	"ms-annotation-be/internal/apperrors"

	"gorm.io/gorm"
)

// GridFilter is one filter descriptor as posted by the result grid. Reaction
// filters carry Reactant/Product/ReactionName instead of Comparison/Value.
type GridFilter struct {
	Field        string      `json:"field"`
	Type         string      `json:"type"`
	Comparison   string      `json:"comparison,omitempty"`
	Value        interface{} `json:"value,omitempty"`
	Reactant     *int64      `json:"reactant,omitempty"`
	Product      *int64      `json:"product,omitempty"`
	ReactionName string      `json:"name,omitempty"`
}

// GridSort is one sort descriptor: a property name plus ASC or DESC.
type GridSort struct {
	Property  string `json:"property"`
	Direction string `json:"direction"`
}

const (
	FilterNumeric  = "numeric"
	FilterString   = "string"
	FilterList     = "list"
	FilterBoolean  = "boolean"
	FilterNull     = "null"
	FilterReaction = "reaction"
)

// ParseGridFilters decodes a JSON array of filter descriptors.
func ParseGridFilters(raw string) ([]GridFilter, error) {
	if raw == "" {
		return nil, nil
	}
	var filters []GridFilter
	if err := json.Unmarshal([]byte(raw), &filters); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrBadFilter, err)
	}
	return filters, nil
}

// ParseGridSorts decodes a JSON array of sort descriptors.
func ParseGridSorts(raw string) ([]GridSort, error) {
	if raw == "" {
		return nil, nil
	}
	var sorts []GridSort
	if err := json.Unmarshal([]byte(raw), &sorts); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrBadFilter, err)
	}
	return sorts, nil
}

// ApplyColumnFilter translates one non-reaction filter descriptor into a
// WHERE clause against the given column expression. Unknown types and
// comparisons are contract violations, not transient faults.
func ApplyColumnFilter(q *gorm.DB, column string, f GridFilter) (*gorm.DB, error) {
	switch f.Type {
	case FilterNumeric:
		switch f.Comparison {
		case "eq":
			return q.Where(column+" = ?", f.Value), nil
		case "gt":
			return q.Where(column+" > ?", f.Value), nil
		case "lt":
			return q.Where(column+" < ?", f.Value), nil
		default:
			return nil, fmt.Errorf("%w: numeric comparison %q", apperrors.ErrBadFilter, f.Comparison)
		}
	case FilterString:
		return q.Where(column+" LIKE ?", "%"+fmt.Sprintf("%v", f.Value)+"%"), nil
	case FilterList:
		return q.Where(column+" IN ?", f.Value), nil
	case FilterBoolean:
		return q.Where(column+" = ?", Truthy(f.Value)), nil
	case FilterNull:
		if Truthy(f.Value) {
			return q.Where(column + " IS NOT NULL"), nil
		}
		return q.Where(column + " IS NULL"), nil
	default:
		return nil, fmt.Errorf("%w: type %q", apperrors.ErrBadFilter, f.Type)
	}
}

// OrderDirection validates a sort direction and returns it in SQL form.
func OrderDirection(direction string) (string, error) {
	switch direction {
	case "ASC", "DESC":
		return direction, nil
	default:
		return "", fmt.Errorf("%w: direction %q", apperrors.ErrBadFilter, direction)
	}
}

// Truthy mirrors the loose boolean coercion of the grid protocol, where
// values arrive as JSON booleans, numbers or strings.
func Truthy(v interface{}) bool {
	switch x := v.(type) {
	case bool:
		return x
	case float64:
		return x != 0
	case int:
		return x != 0
	case int64:
		return x != 0
	case string:
		return x != "" && x != "false" && x != "0"
	case nil:
		return false
	default:
		return true
	}
}
