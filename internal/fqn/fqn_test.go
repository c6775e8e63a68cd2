package fqn

import "testing"

func TestCompute(t *testing.T) {
	got := Compute("myproject", "pkg/service/Order.kt", "ProcessOrder")
	want := "myproject.pkg.service.Order.ProcessOrder"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestComputeNoName(t *testing.T) {
	got := Compute("myproject", "pkg/service/Order.kt", "")
	want := "myproject.pkg.service.Order"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestComputeInitPy(t *testing.T) {
	got := Compute("myproject", "pkg/__init__.py", "")
	want := "myproject.pkg"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestTrimKotlinSourceRoot(t *testing.T) {
	cases := map[string]string{
		"src/main/kotlin/com/acme/Service.kt": "com/acme/Service.kt",
		"src/test/kotlin/com/acme/Spec.kt":    "com/acme/Spec.kt",
		"src/kotlin/com/acme/Service.kt":      "com/acme/Service.kt",
		"app/com/acme/Service.kt":             "app/com/acme/Service.kt",
	}
	for in, want := range cases {
		if got := TrimKotlinSourceRoot(in); got != want {
			t.Errorf("TrimKotlinSourceRoot(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestModuleQNAndFolderQN(t *testing.T) {
	if got := ModuleQN("proj", "a/b/C.kt"); got != "proj.a.b.C" {
		t.Fatalf("ModuleQN: got %q", got)
	}
	if got := FolderQN("proj", "a/b"); got != "proj.a.b" {
		t.Fatalf("FolderQN: got %q", got)
	}
}
