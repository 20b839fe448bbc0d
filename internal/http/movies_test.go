package httpserver

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/Clark-Hu/movie-directory/internal/domain"
)

func TestLooseInt(t *testing.T) {
	tests := []struct {
		raw     string
		want    *int
		wantErr bool
	}{
		{`null`, nil, false},
		{`""`, nil, false},
		{`"  "`, nil, false},
		{`2010`, intPtr(2010), false},
		{`"2010"`, intPtr(2010), false},
		{`" 1999 "`, intPtr(1999), false},
		{`"abc"`, nil, true},
		{`20.5`, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			var v looseInt
			err := json.Unmarshal([]byte(tt.raw), &v)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Unmarshal(%s) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if (v.Value == nil) != (tt.want == nil) || (v.Value != nil && *v.Value != *tt.want) {
				t.Fatalf("Unmarshal(%s) = %v, want %v", tt.raw, v.Value, tt.want)
			}
		})
	}
}

func TestWriteReport(t *testing.T) {
	movies := []domain.Movie{
		{ID: "1", Title: "Crouching Tiger, Hidden Dragon", Year: 2000, Genre: "Wuxia", Director: domain.Director{Name: "Ang Lee"}},
		{ID: "2", Title: "Heat", Year: 1995, Genre: "Crime", Director: domain.Director{Name: "Michael Mann"}},
	}
	var buf bytes.Buffer
	if err := writeReport(&buf, movies); err != nil {
		t.Fatalf("writeReport: %v", err)
	}
	want := "Id,Title,Year,Genre,Director\n" +
		"1,\"Crouching Tiger, Hidden Dragon\",2000,Wuxia,Ang Lee\n" +
		"2,Heat,1995,Crime,Michael Mann\n"
	if buf.String() != want {
		t.Fatalf("report =\n%s\nwant\n%s", buf.String(), want)
	}
}

func intPtr(i int) *int { return &i }
