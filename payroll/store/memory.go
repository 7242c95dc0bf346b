// Package store provides an in-memory payroll.Source.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// MEMORY SOURCE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu           sync.RWMutex
	attendance   map[payroll.EmployeeID][]payroll.AttendanceRow
	holidays     map[string]payroll.Date
	sickLeaves   map[payroll.EmployeeID][]payroll.SickLeave
	compensation map[payroll.EmployeeID]payroll.EmployeeCompensation
	garnishments map[payroll.EmployeeID][]payroll.GarnishmentOrder
	rates        []payroll.ExchangeRate // sorted by EffectiveDate
}

func NewMemory() *Memory {
	return &Memory{
		attendance:   make(map[payroll.EmployeeID][]payroll.AttendanceRow),
		holidays:     make(map[string]payroll.Date),
		sickLeaves:   make(map[payroll.EmployeeID][]payroll.SickLeave),
		compensation: make(map[payroll.EmployeeID]payroll.EmployeeCompensation),
		garnishments: make(map[payroll.EmployeeID][]payroll.GarnishmentOrder),
	}
}

// =============================================================================
// WRITES
// =============================================================================

func (m *Memory) SetCompensation(c payroll.EmployeeCompensation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.compensation[c.EmployeeID] = c
}

func (m *Memory) AddAttendance(rows ...payroll.AttendanceRow) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range rows {
		m.attendance[r.EmployeeID] = append(m.attendance[r.EmployeeID], r)
	}
}

func (m *Memory) AddHoliday(days ...payroll.Date) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range days {
		m.holidays[d.String()] = d
	}
}

func (m *Memory) AddSickLeave(leaves ...payroll.SickLeave) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range leaves {
		m.sickLeaves[l.EmployeeID] = append(m.sickLeaves[l.EmployeeID], l)
	}
}

func (m *Memory) AddGarnishment(orders ...payroll.GarnishmentOrder) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range orders {
		m.garnishments[o.EmployeeID] = append(m.garnishments[o.EmployeeID], o)
	}
}

// AddExchangeRate inserts a rate, keeping the list ordered by effective date.
// A rate for an existing date replaces it.
func (m *Memory) AddExchangeRate(r payroll.ExchangeRate) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := sort.Search(len(m.rates), func(i int) bool {
		return !m.rates[i].EffectiveDate.Before(r.EffectiveDate)
	})
	if i < len(m.rates) && m.rates[i].EffectiveDate.Equal(r.EffectiveDate) {
		m.rates[i] = r
		return
	}
	m.rates = append(m.rates, payroll.ExchangeRate{})
	copy(m.rates[i+1:], m.rates[i:])
	m.rates[i] = r
}

// =============================================================================
// payroll.Source
// =============================================================================

func (m *Memory) Attendance(_ context.Context, employeeID payroll.EmployeeID, period payroll.Period) ([]payroll.AttendanceRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []payroll.AttendanceRow
	for _, r := range m.attendance[employeeID] {
		if period.Contains(r.Date) {
			result = append(result, r)
		}
	}
	return result, nil
}

func (m *Memory) Holidays(_ context.Context, period payroll.Period) ([]payroll.Date, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []payroll.Date
	for _, d := range m.holidays {
		if period.Contains(d) {
			result = append(result, d)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Before(result[j]) })
	return result, nil
}

func (m *Memory) SickLeaves(_ context.Context, employeeID payroll.EmployeeID, period payroll.Period) ([]payroll.SickLeave, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []payroll.SickLeave
	for _, l := range m.sickLeaves[employeeID] {
		end := l.End
		if period.Intersects(l.Start, &end) {
			result = append(result, l)
		}
	}
	return result, nil
}

func (m *Memory) Compensation(_ context.Context, employeeID payroll.EmployeeID) (payroll.EmployeeCompensation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.compensation[employeeID]
	if !ok {
		return payroll.EmployeeCompensation{}, payroll.ErrEmployeeNotFound
	}
	return c, nil
}

func (m *Memory) Garnishments(_ context.Context, employeeID payroll.EmployeeID) ([]payroll.GarnishmentOrder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]payroll.GarnishmentOrder, len(m.garnishments[employeeID]))
	copy(result, m.garnishments[employeeID])
	return result, nil
}

func (m *Memory) ExchangeRate(_ context.Context, asOf payroll.Date) (*payroll.ExchangeRate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.rates) == 0 {
		return nil, nil
	}
	// First rate effective after asOf; the one before it is in force.
	i := sort.Search(len(m.rates), func(i int) bool {
		return m.rates[i].EffectiveDate.After(asOf)
	})
	r := m.rates[len(m.rates)-1]
	if i > 0 {
		r = m.rates[i-1]
	}
	return &r, nil
}

// ListEmployeeIDs implements payroll.EmployeeLister.
func (m *Memory) ListEmployeeIDs(_ context.Context) ([]payroll.EmployeeID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]payroll.EmployeeID, 0, len(m.compensation))
	for id := range m.compensation {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}
