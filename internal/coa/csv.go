package coa

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/model"
)

const (
	numFields       = 7
	colNumber       = 0
	colName         = 1
	colType         = 2
	colFSLI         = 3
	colSubledger    = 4
	colParent       = 5
	colIntercompany = 6
)

// ReadTemplates reads account templates from a chart CSV.
func ReadTemplates(r io.Reader) ([]model.AccountTemplate, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading chart CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	var templates []model.AccountTemplate
	for i, rec := range records[1:] {
		tpl, err := UnmarshalTemplate(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		templates = append(templates, tpl)
	}
	return templates, nil
}

// WriteTemplates writes account templates as a chart CSV.
func WriteTemplates(w io.Writer, templates []model.AccountTemplate) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{"number", "name", "type", "fsli", "subledger", "parent_number", "intercompany"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, tpl := range templates {
		if err := cw.Write(MarshalTemplate(tpl)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	return cw.Error()
}

// MarshalTemplate converts a template to a CSV row.
func MarshalTemplate(t model.AccountTemplate) []string {
	row := make([]string, numFields)
	row[colNumber] = t.Number
	row[colName] = t.Name
	row[colType] = string(t.Type)
	row[colFSLI] = t.FSLI
	row[colSubledger] = string(t.Subledger)
	row[colParent] = t.ParentNumber
	row[colIntercompany] = strconv.FormatBool(t.Intercompany)
	return row
}

// UnmarshalTemplate converts a CSV row to a template.
func UnmarshalTemplate(record []string) (model.AccountTemplate, error) {
	if len(record) != numFields {
		return model.AccountTemplate{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	accType := model.AccountType(record[colType])
	if !accType.Valid() {
		return model.AccountTemplate{}, fmt.Errorf("unknown account type %q", record[colType])
	}

	intercompany, err := strconv.ParseBool(record[colIntercompany])
	if err != nil {
		return model.AccountTemplate{}, fmt.Errorf("parsing intercompany %q: %w", record[colIntercompany], err)
	}

	return model.AccountTemplate{
		Number:       record[colNumber],
		Name:         record[colName],
		Type:         accType,
		FSLI:         record[colFSLI],
		Subledger:    model.SubledgerType(record[colSubledger]),
		ParentNumber: record[colParent],
		Intercompany: intercompany,
	}, nil
}
