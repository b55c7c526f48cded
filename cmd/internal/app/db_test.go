package app

import "testing"

func TestParseDatabaseURL(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in       string
		wantKind storeKind
		wantPath string
		wantErr  bool
	}{
		{in: "sqlite:///app.db", wantKind: storeSQLite, wantPath: "app.db"},
		{in: "sqlite:////var/lib/microblog/app.db", wantKind: storeSQLite, wantPath: "/var/lib/microblog/app.db"},
		{in: "sqlite://", wantKind: storeSQLite, wantPath: ":memory:"},
		{in: "postgres://u:p@db:5432/blog", wantKind: storePostgres, wantPath: "postgres://u:p@db:5432/blog"},
		{in: "postgresql://db/blog", wantKind: storePostgres, wantPath: "postgresql://db/blog"},
		{in: "memory://", wantKind: storeMemory},
		{in: "mysql://db/blog", wantErr: true},
		{in: "app.db", wantErr: true},
	}

	for _, tc := range cases {
		kind, path, err := parseDatabaseURL(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("parseDatabaseURL(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("parseDatabaseURL(%q): %v", tc.in, err)
		}
		if kind != tc.wantKind || path != tc.wantPath {
			t.Fatalf("parseDatabaseURL(%q)=(%s,%q) want=(%s,%q)", tc.in, kind, path, tc.wantKind, tc.wantPath)
		}
	}
}
