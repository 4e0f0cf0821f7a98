package refs

import "testing"

func TestParse(t *testing.T) {
	file, symbol, has := Parse("foo.go#Bar::Baz")
	if file != "foo.go" || symbol != "Bar::Baz" || !has {
		t.Fatalf("Parse = (%q, %q, %v)", file, symbol, has)
	}

	file, symbol, has = Parse("foo.go")
	if file != "foo.go" || symbol != "" || has {
		t.Fatalf("Parse(no symbol) = (%q, %q, %v)", file, symbol, has)
	}
}

func TestIsParentOf(t *testing.T) {
	tests := []struct {
		name   string
		parent string
		child  string
		want   bool
	}{
		{"different files never overlap", "a.go#Foo", "b.go#Foo", false},
		{"file-only parent contains symbol child", "a.go", "a.go#Foo", true},
		{"file-only parent contains file-only child", "a.go", "a.go", true},
		{"symbol parent does not contain file-only child", "a.go#Foo", "a.go", false},
		{"equal symbols self-contain", "a.go#Foo", "a.go#Foo", true},
		{"nested symbol contained", "a.go#Foo", "a.go#Foo::Bar", true},
		{"sibling symbol not contained", "a.go#Foo", "a.go#Foobar", false},
		{"unrelated symbol not contained", "a.go#Foo", "a.go#Bar", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsParentOf(tt.parent, tt.child); got != tt.want {
				t.Errorf("IsParentOf(%q, %q) = %v, want %v", tt.parent, tt.child, got, tt.want)
			}
		})
	}
}
