package location

import "testing"

func TestAddressQuery(t *testing.T) {
	a := Address{Country: "Oman", Region: "Muscat", City: "Bawshar", Line: " Way 3021 "}
	if got, want := a.Query(), "Way 3021, Bawshar, Muscat, Oman"; got != want {
		t.Errorf("Query() = %q, want %q", got, want)
	}
	if got := (Address{}).Query(); got != "" {
		t.Errorf("empty Query() = %q", got)
	}
}

func TestAddressCoarse(t *testing.T) {
	tests := []struct {
		in   Address
		want string
	}{
		{Address{City: "Seeb", Region: "Muscat", Line: "house 12"}, "Seeb, Muscat"},
		{Address{City: "Seeb"}, "Seeb"},
		{Address{Region: "Dhofar"}, "Dhofar"},
	}
	for _, tt := range tests {
		if got := tt.in.Coarse(); got != tt.want {
			t.Errorf("Coarse() = %q, want %q", got, tt.want)
		}
	}
}
