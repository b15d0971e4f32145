package focuser

// Marks holds two user-saved positions, M1 and M2.  The zero value has
// neither mark set.  Marks are only ever overwritten, never cleared.
type Marks struct {
	m1, m2     int
	has1, has2 bool
}

// M1 returns the first mark and whether it is set
func (m Marks) M1() (int, bool) {
	return m.m1, m.has1
}

// M2 returns the second mark and whether it is set
func (m Marks) M2() (int, bool) {
	return m.m2, m.has2
}

// MarkFirst stores pos in M1, shifting the previous M1 into M2.
// If M1 was never set, M2 keeps its value.
func (m *Marks) MarkFirst(pos int) {
	if m.has1 {
		m.m2, m.has2 = m.m1, true
	}
	m.m1, m.has1 = pos, true
}

// MarkSecond stores pos in M2
func (m *Marks) MarkSecond(pos int) {
	m.m2, m.has2 = pos, true
}

// Midpoint returns (M1+M2)/2, truncated toward zero
func (m Marks) Midpoint() (int, error) {
	if !m.has1 || !m.has2 {
		return 0, ErrMarksIncomplete
	}
	return (m.m1 + m.m2) / 2, nil
}
