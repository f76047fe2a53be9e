package resultdb

import (
	"bytes"
	"encoding/csv"
	"strconv"

	"ms-annotation-be/internal/dto"
)

// csvHeaders is the fixed export header order; score is appended only for
// rows produced by a scan scoped query.
var csvHeaders = []string{
	"name", "smiles", "refscore", "reactionsequence",
	"nhits", "formula", "mim", "predicted", "logp",
	"reference",
}

// sdfProperties matches csvHeaders minus predicted.
var sdfProperties = []string{
	"name", "smiles", "refscore", "reactionsequence",
	"nhits", "formula", "mim", "logp",
	"reference",
}

func exportFields(fixed []string, rows []dto.MoleculeRow, cols []string) []string {
	fields := fixed
	if len(rows) > 0 && rows[0].Score != nil {
		fields = append(append([]string{}, fixed...), "score")
	}
	if len(cols) == 0 {
		return fields
	}
	wanted := make(map[string]bool, len(cols))
	for _, c := range cols {
		wanted[c] = true
	}
	subset := make([]string, 0, len(fields))
	for _, f := range fields {
		if wanted[f] {
			subset = append(subset, f)
		}
	}
	return subset
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func moleculeField(m *dto.MoleculeRow, field string) string {
	switch field {
	case "name":
		return m.Name
	case "smiles":
		return m.Smiles
	case "refscore":
		return formatFloat(m.RefScore)
	case "reactionsequence":
		return string(m.ReactionSequence)
	case "nhits":
		return strconv.FormatInt(m.NHits, 10)
	case "formula":
		return m.Formula
	case "mim":
		return formatFloat(m.Mim)
	case "predicted":
		return strconv.FormatBool(m.Predicted)
	case "logp":
		return formatFloat(m.LogP)
	case "reference":
		return m.Reference
	case "score":
		if m.Score == nil {
			return ""
		}
		return formatFloat(*m.Score)
	}
	return ""
}

// MoleculesCSV renders molecule rows as CSV with the fixed header order,
// optionally restricted to a column subset.
func (db *DB) MoleculesCSV(rows []dto.MoleculeRow, cols []string) (string, error) {
	fields := exportFields(csvHeaders, rows, cols)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(fields); err != nil {
		return "", err
	}
	for i := range rows {
		record := make([]string, 0, len(fields))
		for _, f := range fields {
			record = append(record, moleculeField(&rows[i], f))
		}
		if err := w.Write(record); err != nil {
			return "", err
		}
	}
	w.Flush()
	return buf.String(), w.Error()
}

// MoleculesSDF renders molecule rows as an SDF document: the structure block
// followed by a property stanza per exported field, records closed by $$$$.
func (db *DB) MoleculesSDF(rows []dto.MoleculeRow, cols []string) (string, error) {
	props := exportFields(sdfProperties, rows, cols)

	var buf bytes.Buffer
	for i := range rows {
		m := &rows[i]
		buf.WriteString(m.Mol)
		for _, p := range props {
			buf.WriteString("> <" + p + ">\n")
			buf.WriteString(moleculeField(m, p))
			buf.WriteString("\n\n")
		}
		buf.WriteString("$$$$\n")
	}
	return buf.String(), nil
}
