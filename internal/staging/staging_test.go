package staging

import "testing"

func TestTableName(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"output/Schools.csv", "staging_schools"},
		{"Course_Enrollments.csv", "staging_course_enrollments"},
		{"/tmp/out/School_Star_Associations.csv", "staging_school_star_associations"},
		{"Districts.csv", "staging_districts"},
	}
	for _, tt := range tests {
		if got := TableName(tt.path); got != tt.want {
			t.Errorf("TableName(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
