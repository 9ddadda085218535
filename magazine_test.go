package heap

import "testing"

func TestMagazinePushPopOrder(t *testing.T) {
	m := newMagazine(4)
	for i := uintptr(1); i <= 3; i++ {
		if !m.push(i) {
			t.Fatalf("push %v failed unexpectedly", i)
		}
	}
	if m.len() != 3 {
		t.Errorf("expected len 3, got %v", m.len())
	}
	if p := m.pop(); p != 3 {
		t.Errorf("expected LIFO pop to return 3, got %v", p)
	}
	if p := m.pop(); p != 2 {
		t.Errorf("expected LIFO pop to return 2, got %v", p)
	}
}

func TestMagazineCapacityEnforced(t *testing.T) {
	m := newMagazine(2)
	if !m.push(1) || !m.push(2) {
		t.Fatalf("expected first two pushes to succeed")
	}
	if m.push(3) {
		t.Errorf("expected push past capacity to fail")
	}
	if !m.full() {
		t.Errorf("expected magazine to report full")
	}
}

func TestMagazineEmptyPopReturnsZero(t *testing.T) {
	m := newMagazine(2)
	if !m.empty() {
		t.Errorf("expected a fresh magazine to be empty")
	}
	if p := m.pop(); p != 0 {
		t.Errorf("expected pop on empty magazine to return 0, got %v", p)
	}
}
