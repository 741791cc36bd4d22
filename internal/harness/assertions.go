package harness

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/profilegen/internal/constraint"
	"github.com/roach88/profilegen/internal/engine"
	"github.com/roach88/profilegen/internal/fieldspec"
	"github.com/roach88/profilegen/internal/ir"
	"github.com/roach88/profilegen/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string   // Assertion type for categorization
	Expected string   // Human-readable expected outcome
	Actual   string   // Human-readable actual outcome
	RowSpecs []string // RowSpec listing for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.RowSpecs) > 0 {
		fmt.Fprintf(&buf, "\nRowSpecs:\n")
		for i, rs := range e.RowSpecs {
			fmt.Fprintf(&buf, "  [%d] %s\n", i+1, rs)
		}
	}

	return buf.String()
}

// AssertionContext provides what row assertions need to generate rows.
type AssertionContext struct {
	Ctx     context.Context
	Options []engine.EngineOption
	Profile *constraint.Profile
	Store   *store.Store

	// run and stored are generated once, for the largest row count any
	// assertion asks for.
	run    *engine.Run
	stored []store.RowRecord
	genErr error
}

// EvaluateAssertions checks every assertion and returns the failure
// messages, in assertion order.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertRowSpecCount:
			err = assertRowSpecCount(result.RowSpecs, a)
		case AssertRowSpecContains:
			err = assertRowSpecContains(result.RowSpecs, a)
		case AssertRowsSatisfy:
			err = assertRowsSatisfy(actx, assertions, a)
		case AssertFieldValues:
			err = assertFieldValues(actx, assertions, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func assertRowSpecCount(listing []string, a Assertion) error {
	if len(listing) == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertRowSpecCount,
		Expected: fmt.Sprintf("%d row specs", a.Count),
		Actual:   fmt.Sprintf("%d row specs", len(listing)),
		RowSpecs: listing,
	}
}

func assertRowSpecContains(listing []string, a Assertion) error {
	if slices.Contains(listing, a.RowSpec) {
		return nil
	}
	return &AssertionError{
		Type:     AssertRowSpecContains,
		Expected: a.RowSpec,
		Actual:   "not found in listing",
		RowSpecs: listing,
	}
}

// assertRowsSatisfy checks every valid generated row against every rule,
// and checks that the store holds exactly the rows that were generated.
func assertRowsSatisfy(actx *AssertionContext, all []Assertion, a Assertion) error {
	if err := actx.generate(all); err != nil {
		return err
	}

	formulas := actx.Profile.Formulas()
	for i, row := range actx.run.Rows {
		if row.Violated != "" {
			continue
		}
		ok, err := fieldspec.SatisfiesAll(formulas, row.Values)
		if err != nil {
			return fmt.Errorf("row %d: %w", row.Seq, err)
		}
		if !ok {
			return &AssertionError{
				Type:     AssertRowsSatisfy,
				Expected: "every row satisfies every rule",
				Actual:   fmt.Sprintf("row %d %s breaks a rule", row.Seq, formatRow(actx.Profile.Fields, row.Values)),
			}
		}

		stored := actx.stored[i]
		hash, err := ir.RowHash(row.Values)
		if err != nil {
			return err
		}
		if stored.Seq != row.Seq || stored.Hash != hash {
			return &AssertionError{
				Type:     AssertRowsSatisfy,
				Expected: fmt.Sprintf("stored row %d with hash %s", row.Seq, hash),
				Actual:   fmt.Sprintf("stored row %d with hash %s", stored.Seq, stored.Hash),
			}
		}
	}
	return nil
}

func assertFieldValues(actx *AssertionContext, all []Assertion, a Assertion) error {
	field := ir.NewField(a.Field)
	if !actx.Profile.Fields.Contains(field) {
		return fmt.Errorf("field %q is not in the profile", a.Field)
	}

	allowed := make(map[string]bool, len(a.Values))
	for _, raw := range a.Values {
		v, err := ir.ValueFromAny(raw)
		if err != nil {
			return fmt.Errorf("values: %w", err)
		}
		allowed[v.Hash()] = true
	}

	if err := actx.generate(all); err != nil {
		return err
	}
	for _, row := range actx.run.Rows {
		v := row.Values[a.Field]
		if !allowed[v.Hash()] {
			return &AssertionError{
				Type:     AssertFieldValues,
				Expected: fmt.Sprintf("%s in %v", a.Field, a.Values),
				Actual:   fmt.Sprintf("row %d has %s=%s", row.Seq, a.Field, v),
			}
		}
	}
	return nil
}

// generate produces and persists the rows for row assertions, once.
func (actx *AssertionContext) generate(all []Assertion) error {
	if actx.run != nil || actx.genErr != nil {
		return actx.genErr
	}

	rows := 0
	for _, a := range all {
		if a.Type != AssertRowsSatisfy && a.Type != AssertFieldValues {
			continue
		}
		n := a.Rows
		if n == 0 {
			n = defaultAssertionRows
		}
		rows = max(rows, n)
	}

	actx.genErr = func() error {
		eng := engine.New(append(slices.Clone(actx.Options), engine.WithMaxRows(rows))...)
		run, err := eng.Generate(actx.Ctx, actx.Profile)
		if err != nil {
			return fmt.Errorf("generate rows: %w", err)
		}
		if err := actx.Store.SaveRun(actx.Ctx, run); err != nil {
			return fmt.Errorf("persist rows: %w", err)
		}
		stored, err := actx.Store.ReadRows(actx.Ctx, run.ID)
		if err != nil {
			return fmt.Errorf("read rows: %w", err)
		}
		if len(stored) != len(run.Rows) {
			return fmt.Errorf("store holds %d rows, generated %d", len(stored), len(run.Rows))
		}
		actx.run, actx.stored = run, stored
		return nil
	}()
	return actx.genErr
}

func formatRow(fields ir.ProfileFields, row ir.Row) string {
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = fmt.Sprintf("%s=%s", f.Name, row[f.Name])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
