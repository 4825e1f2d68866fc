// Package flatten joins map units, components and leaf records read from a row
// source into per-map-unit row buffers and streams them to the aggregation
// engine.
package flatten

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/de-tools/soil-atlas/pkg/models/domain"
	"github.com/de-tools/soil-atlas/pkg/models/store"
	"github.com/de-tools/soil-atlas/pkg/services/ratingdomain"
	"github.com/de-tools/soil-atlas/pkg/services/slicer"
	"github.com/de-tools/soil-atlas/pkg/store/source"
	"github.com/rs/zerolog"
)

// Options are the request settings that decide which rows qualify.
type Options struct {
	Cutoff     float64
	MajorOnly  bool
	NullPolicy domain.NullPolicy
	Method     domain.Method
	Depth      *domain.DepthRange
	Months     *domain.MonthRange
}

func OptionsFor(req domain.AggregationRequest) Options {
	return Options{
		Cutoff:     req.Cutoff,
		MajorOnly:  req.MajorOnly,
		NullPolicy: req.NullPolicy,
		Method:     req.Method,
		Depth:      req.Depth,
		Months:     req.Months,
	}
}

// keepsNullRated reports whether components under the cutoff come back when
// their rating is null.
func (o Options) keepsNullRated() bool {
	return o.Method == domain.MethodPercentPresent && o.NullPolicy == domain.NullsInclude
}

// Stats counts what one stream read. Qualified counts the real rows sent to
// the engine plus the non-null map unit values; the null placeholder rows of
// components without qualifying leaves are not counted.
type Stats struct {
	MapUnits   int
	Components int
	Leaves     int
	Qualified  int
}

type Flattener struct {
	src source.RowSource
}

func New(src source.RowSource) (*Flattener, error) {
	if src == nil {
		return nil, fmt.Errorf("row source is nil")
	}
	return &Flattener{src: src}, nil
}

type unitState struct {
	rows    domain.MapUnitRows
	pending int
	sent    bool
}

type componentState struct {
	comp    domain.Component
	ordinal int
	unit    *unitState
	// live components are admitted or held and still owe their rows to the
	// map unit
	live     bool
	admitted bool
	// held components failed the cutoff and are admitted later only when
	// every value they carry is null
	held bool
	done bool
	rows []domain.FlatRow
}

type run struct {
	src      source.RowSource
	desc     *domain.AttributeDescriptor
	opts     Options
	slicer   *slicer.Slicer
	warnings *domain.WarningLog
	out      chan<- domain.MapUnitRows

	units      []*unitState
	unitIndex  map[string]*unitState
	components []*componentState
	compIndex  map[string]*componentState
	stats      Stats
}

// Stream reads the hierarchy for one attribute and sends each map unit on out
// as soon as every row under it has been read, then closes out. Leaf records
// are read in component key order and a component is complete once the next
// component key shows up, so only map units with unfinished components are
// buffered. Per-row anomalies are recorded in warnings; a record pointing at
// a parent that does not exist fails the whole call with
// ErrInconsistentHierarchy.
func (f *Flattener) Stream(ctx context.Context, desc *domain.AttributeDescriptor, opts Options, warnings *domain.WarningLog, out chan<- domain.MapUnitRows) (*Stats, error) {
	defer close(out)
	if desc == nil {
		return nil, fmt.Errorf("attribute descriptor is nil")
	}
	if warnings == nil {
		warnings = domain.NewWarningLog(0)
	}
	r := &run{
		src:       f.src,
		desc:      desc,
		opts:      opts,
		slicer:    slicer.New(opts.Depth, opts.Months),
		warnings:  warnings,
		out:       out,
		unitIndex: make(map[string]*unitState),
		compIndex: make(map[string]*componentState),
	}
	if err := r.stream(ctx); err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Debug().
		Str("attribute", desc.Name).
		Int("map_units", r.stats.MapUnits).
		Int("components", r.stats.Components).
		Int("leaves", r.stats.Leaves).
		Int("qualified", r.stats.Qualified).
		Int("warnings", warnings.Count).
		Msg("flattened hierarchy")
	return &r.stats, nil
}

func (r *run) stream(ctx context.Context) error {
	if err := r.readMapUnits(ctx); err != nil {
		return err
	}

	if r.desc.Level == domain.LevelMapUnit {
		if !strings.EqualFold(r.desc.Table, store.MapUnitTable) {
			if err := r.readMapUnitValues(ctx); err != nil {
				return err
			}
		}
		for _, u := range r.units {
			if !u.rows.Value.IsMissing() {
				r.stats.Qualified++
			}
			if err := r.send(ctx, u); err != nil {
				return err
			}
		}
		return nil
	}

	inline := r.desc.Level == domain.LevelComponent && strings.EqualFold(r.desc.Table, store.ComponentTable)
	if err := r.readComponents(ctx, inline); err != nil {
		return err
	}
	if !inline {
		// map units without live components are complete already
		if err := r.sendIdle(ctx); err != nil {
			return err
		}
		if err := r.readLeaves(ctx); err != nil {
			return err
		}
	}
	for _, st := range r.components {
		if err := r.finish(ctx, st); err != nil {
			return err
		}
	}
	return r.sendIdle(ctx)
}

func (r *run) readMapUnits(ctx context.Context) error {
	cols := []string{store.MapUnitKey, store.MapUnitAreaSymbol, store.MapUnitSymbol, store.MapUnitName}
	inline := r.desc.Level == domain.LevelMapUnit && strings.EqualFold(r.desc.Table, store.MapUnitTable)
	if inline {
		cols = append(cols, r.desc.Column)
	}

	return each(ctx, r.src, source.Query{
		Table:   store.MapUnitTable,
		Columns: cols,
		OrderBy: []string{store.MapUnitKey},
	}, func(v []interface{}) error {
		mu := domain.MapUnit{
			ID:         domain.ToString(v[0]),
			AreaSymbol: domain.ToString(v[1]),
			Symbol:     domain.ToString(v[2]),
			Name:       domain.ToString(v[3]),
		}
		if _, dup := r.unitIndex[mu.ID]; dup {
			r.warn(domain.Warning{MapUnitID: mu.ID, Reason: "duplicate map unit key"})
			return nil
		}
		u := &unitState{rows: domain.MapUnitRows{MapUnit: mu}}
		if inline {
			u.rows.Value = r.parse(v[4], domain.Warning{MapUnitID: mu.ID})
		}
		r.unitIndex[mu.ID] = u
		r.units = append(r.units, u)
		r.stats.MapUnits++
		return nil
	})
}

func (r *run) readMapUnitValues(ctx context.Context) error {
	set := make(map[*unitState]bool)
	return each(ctx, r.src, source.Query{
		Table:   r.desc.Table,
		Columns: []string{store.MapUnitKey, r.desc.Column},
		Where:   conditions(r.desc.Constraints()),
		OrderBy: []string{store.MapUnitKey},
	}, func(v []interface{}) error {
		mukey := domain.ToString(v[0])
		u, ok := r.unitIndex[mukey]
		if !ok {
			return &domain.RatingError{
				Kind:      domain.ErrInconsistentHierarchy,
				Attribute: r.desc.Name,
				MapUnit:   mukey,
				Detail:    fmt.Sprintf("%s row references an unknown map unit", r.desc.Table),
			}
		}
		if set[u] {
			r.warn(domain.Warning{MapUnitID: mukey, Reason: "more than one map unit value, keeping the first"})
			return nil
		}
		set[u] = true
		u.rows.Value = r.parse(v[1], domain.Warning{MapUnitID: mukey})
		return nil
	})
}

// readComponents registers every component. With inline values a map unit
// is complete when the component stream moves on to the next map unit.
func (r *run) readComponents(ctx context.Context, inline bool) error {
	cols := []string{
		store.ComponentKey,
		store.MapUnitKey,
		store.ComponentName,
		store.ComponentPercent,
		store.ComponentMajor,
		store.ComponentKind,
	}
	if inline {
		cols = append(cols, r.desc.Column)
	}

	var group []*componentState
	err := each(ctx, r.src, source.Query{
		Table:   store.ComponentTable,
		Columns: cols,
		OrderBy: []string{store.MapUnitKey, store.ComponentKey},
	}, func(v []interface{}) error {
		comp := domain.Component{
			ID:        domain.ToString(v[0]),
			MapUnitID: domain.ToString(v[1]),
			Name:      domain.ToString(v[2]),
			Major:     isYes(v[4]),
			Kind:      domain.ToString(v[5]),
		}
		unit, ok := r.unitIndex[comp.MapUnitID]
		if !ok {
			return &domain.RatingError{
				Kind:      domain.ErrInconsistentHierarchy,
				Attribute: r.desc.Name,
				MapUnit:   comp.MapUnitID,
				Component: comp.ID,
				Detail:    "component references an unknown map unit",
			}
		}
		if _, dup := r.compIndex[comp.ID]; dup {
			r.warn(domain.Warning{MapUnitID: comp.MapUnitID, ComponentID: comp.ID, Reason: "duplicate component key"})
			return nil
		}
		if inline && len(group) > 0 && group[0].unit != unit {
			if err := r.finishAll(ctx, group); err != nil {
				return err
			}
			group = group[:0]
		}
		if unit.sent {
			return fmt.Errorf("components of map unit %s are not grouped by map unit key", comp.MapUnitID)
		}

		st := &componentState{unit: unit, ordinal: len(r.components)}
		r.compIndex[comp.ID] = st
		r.components = append(r.components, st)
		r.stats.Components++

		pct, err := domain.ParseFloat(v[3])
		switch {
		case err != nil:
			r.warn(domain.Warning{MapUnitID: comp.MapUnitID, ComponentID: comp.ID, Reason: "unreadable component percent"})
			st.comp = comp
			return nil
		case pct != nil && (*pct < 0 || *pct > 100):
			r.warn(domain.Warning{MapUnitID: comp.MapUnitID, ComponentID: comp.ID, Reason: fmt.Sprintf("component percent %g is outside 0 to 100", *pct)})
			st.comp = comp
			return nil
		}
		comp.Percent = pct
		st.comp = comp

		st.admitted = true
		if r.opts.MajorOnly && !comp.Major {
			st.admitted = false
		}
		if st.admitted && r.opts.Cutoff > 0 && comp.Pct() < r.opts.Cutoff {
			st.admitted = false
			st.held = r.opts.keepsNullRated()
		}
		if !st.admitted && !st.held {
			return nil
		}
		st.live = true
		unit.pending++
		if inline {
			st.rows = append(st.rows, domain.FlatRow{
				Component: comp,
				Leaf:      domain.Leaf{Kind: domain.LeafNone},
				Value:     r.parse(v[6], domain.Warning{MapUnitID: comp.MapUnitID, ComponentID: comp.ID}),
				Weight:    1,
			})
			group = append(group, st)
		}
		return nil
	})
	if err != nil {
		return err
	}
	return r.finishAll(ctx, group)
}

// readLeaves reads leaf records in component key order. A component is
// complete when the next row names another component; rows of a completed
// component showing up again fail the read.
func (r *run) readLeaves(ctx context.Context) error {
	kind := domain.LeafFor(r.desc.Level)
	var cols, order []string
	switch kind {
	case domain.LeafHorizon:
		cols = []string{store.HorizonKey, store.ComponentKey, store.HorizonTop, store.HorizonBottom}
		order = []string{store.ComponentKey, store.HorizonTop}
	case domain.LeafMonth:
		cols = []string{store.MonthKey, store.ComponentKey, store.MonthSequence}
		order = []string{store.ComponentKey, store.MonthSequence}
	case domain.LeafInterpretation:
		cols = []string{store.InterpretationKey, store.ComponentKey, store.InterpretationDepth}
		order = []string{store.ComponentKey, store.InterpretationKey}
	default:
		// component-level value kept in a child table of component
		cols = []string{store.ComponentKey}
		order = []string{store.ComponentKey}
	}
	keyAt := 1
	if kind == domain.LeafNone {
		keyAt = 0
	}
	valueAt := len(cols)
	cols = append(cols, r.desc.Column)

	var current *componentState
	err := each(ctx, r.src, source.Query{
		Table:   r.desc.Table,
		Columns: cols,
		Where:   conditions(r.desc.Constraints()),
		OrderBy: order,
	}, func(v []interface{}) error {
		leaf := domain.Leaf{Kind: kind}
		if kind != domain.LeafNone {
			leaf.ID = domain.ToString(v[0])
		}
		cokey := domain.ToString(v[keyAt])
		st, ok := r.compIndex[cokey]
		if !ok {
			return &domain.RatingError{
				Kind:      domain.ErrInconsistentHierarchy,
				Attribute: r.desc.Name,
				Component: cokey,
				Detail:    fmt.Sprintf("%s row %s references an unknown component", r.desc.Table, leaf.ID),
			}
		}
		if st != current {
			if current != nil {
				if err := r.finish(ctx, current); err != nil {
					return err
				}
			}
			if st.done {
				return fmt.Errorf("%s rows of component %s are not grouped by component key", r.desc.Table, cokey)
			}
			current = st
		}
		if !st.live {
			return nil
		}
		at := domain.Warning{MapUnitID: st.comp.MapUnitID, ComponentID: cokey, LeafID: leaf.ID}

		if err := r.readLeafPosition(&leaf, v); err != nil {
			at.Reason = err.Error()
			r.warn(at)
			return nil
		}
		weight, in, err := r.slicer.Weight(leaf)
		if err != nil {
			at.Reason = err.Error()
			r.warn(at)
			return nil
		}
		if !in {
			return nil
		}

		raw, err := domain.ParseRating(v[valueAt], r.desc.DataType)
		if err != nil {
			at.Reason = fmt.Sprintf("unreadable %s value: %v", r.desc.Column, err)
			r.warn(at)
			return nil
		}
		st.rows = append(st.rows, domain.FlatRow{
			Component: st.comp,
			Leaf:      leaf,
			Value:     r.replaceNull(raw),
			Weight:    weight,
		})
		r.stats.Leaves++
		return nil
	})
	if err != nil {
		return err
	}
	if current != nil {
		return r.finish(ctx, current)
	}
	return nil
}

func (r *run) readLeafPosition(leaf *domain.Leaf, v []interface{}) error {
	switch leaf.Kind {
	case domain.LeafHorizon:
		top, err := domain.ParseFloat(v[2])
		if err != nil || top == nil {
			return fmt.Errorf("horizon has no usable top depth")
		}
		bottom, err := domain.ParseFloat(v[3])
		if err != nil || bottom == nil {
			return fmt.Errorf("horizon has no usable bottom depth")
		}
		leaf.Top, leaf.Bottom = *top, *bottom
	case domain.LeafMonth:
		m, err := domain.ParseFloat(v[2])
		if err != nil || m == nil {
			return fmt.Errorf("month slice has no month sequence")
		}
		leaf.Month = int(*m)
	case domain.LeafInterpretation:
		d, err := domain.ParseFloat(v[2])
		if err != nil {
			return fmt.Errorf("unreadable rule depth")
		}
		if d != nil {
			leaf.RuleDepth = int(*d)
		}
	}
	return nil
}

func (r *run) finishAll(ctx context.Context, sts []*componentState) error {
	for _, st := range sts {
		if err := r.finish(ctx, st); err != nil {
			return err
		}
	}
	return nil
}

// finish moves a completed component into its map unit buffer and sends the
// map unit once no component under it is pending. A component without
// qualifying leaves still gets one null-valued row so the engine can count it
// under the include-nulls policy.
func (r *run) finish(ctx context.Context, st *componentState) error {
	if st.done {
		return nil
	}
	st.done = true
	if !st.live {
		return nil
	}
	if st.held && allMissing(st.rows) {
		st.admitted = true
	}
	if st.admitted {
		rows := st.rows
		r.stats.Qualified += len(rows)
		if len(rows) == 0 {
			rows = []domain.FlatRow{{Component: st.comp, Leaf: domain.Leaf{Kind: domain.LeafFor(r.desc.Level)}, Value: domain.Missing()}}
		}
		st.unit.rows.Rows = append(st.unit.rows.Rows, rows...)
	}
	st.rows = nil
	st.unit.pending--
	if st.unit.pending > 0 {
		return nil
	}
	return r.send(ctx, st.unit)
}

// sendIdle sends every map unit that has nothing pending.
func (r *run) sendIdle(ctx context.Context) error {
	for _, u := range r.units {
		if u.pending == 0 {
			if err := r.send(ctx, u); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *run) send(ctx context.Context, u *unitState) error {
	if u.sent {
		return nil
	}
	u.sent = true
	rows := u.rows
	u.rows.Rows = nil
	if len(rows.Rows) > 1 {
		// keep component key order whatever order leaves completed in
		sort.SliceStable(rows.Rows, func(i, j int) bool {
			return r.compIndex[rows.Rows[i].Component.ID].ordinal < r.compIndex[rows.Rows[j].Component.ID].ordinal
		})
	}
	select {
	case r.out <- rows:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func allMissing(rows []domain.FlatRow) bool {
	for _, row := range rows {
		if !row.Value.IsMissing() {
			return false
		}
	}
	return true
}

// parse reads a raw value and applies the null replacement; an unreadable
// value is recorded and treated as null.
func (r *run) parse(raw interface{}, at domain.Warning) domain.RatingValue {
	v, err := domain.ParseRating(raw, r.desc.DataType)
	if err != nil {
		at.Reason = fmt.Sprintf("unreadable %s value: %v", r.desc.Column, err)
		r.warn(at)
		return domain.Missing()
	}
	return r.replaceNull(v)
}

func (r *run) replaceNull(v domain.RatingValue) domain.RatingValue {
	if v.IsMissing() && r.desc.NullReplacement != nil && r.desc.DataType == domain.DataTypeNumeric {
		return domain.Numeric(*r.desc.NullReplacement)
	}
	return v
}

func (r *run) warn(w domain.Warning) {
	r.warnings.Add(w)
}

// Observed returns the distinct class values of a class attribute in first
// seen order, read in one pass over the attribute column under its rule
// constraints. Values are deduplicated the way the rating domain compares
// them. Numeric attributes read nothing.
func (f *Flattener) Observed(ctx context.Context, desc *domain.AttributeDescriptor) ([]string, error) {
	if desc == nil {
		return nil, fmt.Errorf("attribute descriptor is nil")
	}
	if desc.DataType != domain.DataTypeClass {
		return nil, nil
	}
	var order []string
	switch {
	case strings.EqualFold(desc.Table, store.MapUnitTable):
		order = []string{store.MapUnitKey}
	case strings.EqualFold(desc.Table, store.ComponentTable):
		order = []string{store.MapUnitKey, store.ComponentKey}
	case desc.Level == domain.LevelMapUnit:
		order = []string{store.MapUnitKey}
	default:
		order = []string{store.ComponentKey}
	}

	var observed []string
	seen := make(map[string]struct{})
	err := each(ctx, f.src, source.Query{
		Table:   desc.Table,
		Columns: []string{desc.Column},
		Where:   conditions(desc.Constraints()),
		OrderBy: order,
	}, func(v []interface{}) error {
		value, err := domain.ParseRating(v[0], domain.DataTypeClass)
		if err != nil || !value.IsClass() {
			return nil
		}
		k := ratingdomain.Key(value.ClassName())
		if _, ok := seen[k]; ok {
			return nil
		}
		seen[k] = struct{}{}
		observed = append(observed, value.ClassName())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return observed, nil
}

func conditions(in []domain.Condition) []source.Condition {
	out := make([]source.Condition, len(in))
	for i, c := range in {
		out[i] = source.Condition{Column: c.Column, Value: c.Value}
	}
	return out
}

func isYes(v interface{}) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	s := strings.TrimSpace(domain.ToString(v))
	return strings.EqualFold(s, "yes") || strings.EqualFold(s, "y") || s == "1" || strings.EqualFold(s, "true")
}

// each streams a query through fn and closes the cursor.
func each(ctx context.Context, src source.RowSource, q source.Query, fn func([]interface{}) error) error {
	rows, err := src.Query(ctx, q)
	if err != nil {
		return fmt.Errorf("query %s: %w", q.Table, err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("table", q.Table).Msg("failed to close rows")
		}
	}()

	for rows.Next() {
		if err := fn(rows.Values()); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("read %s: %w", q.Table, err)
	}
	return nil
}
