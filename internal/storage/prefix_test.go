package storage

import "testing"

func TestPrefixDB_GetPutDelete(t *testing.T) {
	inner := NewMemory()
	db := NewPrefixDB(inner, []byte("secrets/"))

	if err := db.Put([]byte("key1"), []byte("val1")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := db.Get([]byte("key1"))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "val1" {
		t.Fatalf("Get = %q, want %q", got, "val1")
	}

	ok, err := db.Has([]byte("key1"))
	if err != nil {
		t.Fatalf("Has: %v", err)
	}
	if !ok {
		t.Fatal("Has = false, want true")
	}

	if err := db.Delete([]byte("key1")); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	ok, err = db.Has([]byte("key1"))
	if err != nil {
		t.Fatalf("Has after delete: %v", err)
	}
	if ok {
		t.Fatal("Has after delete = true, want false")
	}
}

func TestPrefixDB_Isolation(t *testing.T) {
	inner := NewMemory()
	secrets := NewPrefixDB(inner, []byte("secrets/"))
	settings := NewPrefixDB(inner, []byte("settings/"))

	if err := secrets.Put([]byte("key"), []byte("fromSecrets")); err != nil {
		t.Fatal(err)
	}
	if err := settings.Put([]byte("key"), []byte("fromSettings")); err != nil {
		t.Fatal(err)
	}

	got, err := secrets.Get([]byte("key"))
	if err != nil {
		t.Fatalf("secrets Get: %v", err)
	}
	if string(got) != "fromSecrets" {
		t.Fatalf("secrets Get = %q, want %q", got, "fromSecrets")
	}

	got, err = settings.Get([]byte("key"))
	if err != nil {
		t.Fatalf("settings Get: %v", err)
	}
	if string(got) != "fromSettings" {
		t.Fatalf("settings Get = %q, want %q", got, "fromSettings")
	}
}

func TestPrefixDB_DeleteAll(t *testing.T) {
	inner := NewMemory()
	secrets := NewPrefixDB(inner, []byte("secrets/"))
	settings := NewPrefixDB(inner, []byte("settings/"))

	secrets.Put([]byte("a"), []byte("1"))
	secrets.Put([]byte("b"), []byte("2"))
	settings.Put([]byte("mode"), []byte("mainnet"))

	if err := secrets.DeleteAll(); err != nil {
		t.Fatalf("DeleteAll: %v", err)
	}

	for _, k := range []string{"a", "b"} {
		if ok, _ := secrets.Has([]byte(k)); ok {
			t.Errorf("secret %q survived DeleteAll", k)
		}
	}

	// Sibling namespace is untouched.
	got, err := settings.Get([]byte("mode"))
	if err != nil {
		t.Fatalf("settings Get after DeleteAll: %v", err)
	}
	if string(got) != "mainnet" {
		t.Fatalf("settings value = %q, want %q", got, "mainnet")
	}
}
