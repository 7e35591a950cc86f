package types

import "testing"

func TestLinkJoins(t *testing.T) {
	l := &Link{FromType: "person", FromID: "p1", ToType: "task", ToID: "t1"}

	if !l.Joins("person", "p1", "task", "t1") {
		t.Error("forward orientation missed")
	}
	if !l.Joins("task", "t1", "person", "p1") {
		t.Error("reverse orientation missed")
	}
	if l.Joins("person", "p1", "task", "t2") {
		t.Error("wrong id matched")
	}
	if l.Joins("person", "p2", "task", "t1") {
		t.Error("wrong source matched")
	}
}

func TestLinkOpposite(t *testing.T) {
	l := &Link{FromType: "person", FromID: "p1", ToType: "task", ToID: "t1"}

	typ, id, ok := l.Opposite("person", "p1")
	if !ok || typ != "task" || id != "t1" {
		t.Errorf("from side = %s:%s, %v", typ, id, ok)
	}
	typ, id, ok = l.Opposite("task", "t1")
	if !ok || typ != "person" || id != "p1" {
		t.Errorf("to side = %s:%s, %v", typ, id, ok)
	}
	if _, _, ok := l.Opposite("person", "p2"); ok {
		t.Error("unrelated endpoint resolved")
	}
}
