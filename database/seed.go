package database

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/acadex/acadex-api/model"
	"github.com/acadex/acadex-api/utils/auth"
)

// Seeder handles database seeding operations
type Seeder struct {
	db *gorm.DB
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{db: db}
}

// SeedAll runs all seed functions
func (s *Seeder) SeedAll() error {
	log.Println("🌱 Starting database seeding...")

	// Run seeds in order (respecting foreign key constraints)
	if err := s.SeedAdminUser(); err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}

	if err := s.SeedDepartments(); err != nil {
		return fmt.Errorf("failed to seed departments: %w", err)
	}

	if err := s.SeedStaff(); err != nil {
		return fmt.Errorf("failed to seed staff: %w", err)
	}

	if err := s.SeedStudents(); err != nil {
		return fmt.Errorf("failed to seed students: %w", err)
	}

	if err := s.SeedSubjects(); err != nil {
		return fmt.Errorf("failed to seed subjects: %w", err)
	}

	if err := s.SeedGrades(); err != nil {
		return fmt.Errorf("failed to seed grades: %w", err)
	}

	log.Println("✅ Database seeding completed successfully!")
	return nil
}

// SeedAdminUser creates the default admin user
func (s *Seeder) SeedAdminUser() error {
	// Check if admin already exists
	var count int64
	if err := s.db.Model(&model.User{}).Where("role = ?", model.RoleAdmin).Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		log.Println("⏭️  Admin user already exists, skipping...")
		return nil
	}

	// Get admin credentials from environment variables
	adminEmail := os.Getenv("ADMIN_EMAIL")
	adminPassword := os.Getenv("ADMIN_PASSWORD")

	if adminEmail == "" || adminPassword == "" {
		log.Println("⚠️  ADMIN_EMAIL and ADMIN_PASSWORD environment variables not set, skipping admin user creation")
		return nil
	}

	passwordHash, err := auth.HashPassword(adminPassword)
	if err != nil {
		return err
	}

	admin := model.User{
		Name:         "System Administrator",
		Email:        adminEmail,
		PasswordHash: passwordHash,
		Role:         model.RoleAdmin,
		IsActive:     true,
	}
	if err := s.db.Create(&admin).Error; err != nil {
		return err
	}

	log.Printf("✅ Created admin user: %s", adminEmail)
	return nil
}

// SeedDepartments creates the demo departments
func (s *Seeder) SeedDepartments() error {
	var count int64
	if err := s.db.Model(&model.Department{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		log.Println("⏭️  Departments already exist, skipping...")
		return nil
	}

	departments := []model.Department{
		{Name: "Computer Science & Engineering", Code: "CSE", TotalSemesters: 8, IsActive: true},
		{Name: "Electronics & Communication", Code: "ECE", TotalSemesters: 8, IsActive: true},
	}
	if err := s.db.Create(&departments).Error; err != nil {
		return err
	}

	log.Printf("✅ Created %d departments", len(departments))
	return nil
}

// SeedStaff creates one HOD and one teacher per seeded department
func (s *Seeder) SeedStaff() error {
	var count int64
	if err := s.db.Model(&model.User{}).Where("role IN ?", []string{model.RoleHOD, model.RoleTeacher}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		log.Println("⏭️  Staff already exist, skipping...")
		return nil
	}

	var departments []model.Department
	if err := s.db.Order("code ASC").Find(&departments).Error; err != nil {
		return err
	}

	passwordHash, err := auth.HashPassword("ChangeMe@123")
	if err != nil {
		return err
	}

	created := 0
	for i, dept := range departments {
		deptID := dept.ID

		hodEmployeeID := fmt.Sprintf("HOD-%s-001", dept.Code)
		hod := model.User{
			Name:         fmt.Sprintf("Head of %s", dept.Code),
			Email:        fmt.Sprintf("hod.%s@acadex.edu", strings.ToLower(dept.Code)),
			PasswordHash: passwordHash,
			Role:         model.RoleHOD,
			DepartmentID: &deptID,
			EmployeeID:   &hodEmployeeID,
			IsActive:     true,
		}
		if err := s.db.Create(&hod).Error; err != nil {
			return err
		}

		// Point the department back at its HOD
		if err := s.db.Model(&model.Department{}).Where("id = ?", deptID).Update("hod_id", hod.ID).Error; err != nil {
			return err
		}

		teacherEmployeeID := fmt.Sprintf("TCH-%s-%03d", dept.Code, i+1)
		teacher := model.User{
			Name:         fmt.Sprintf("%s Demo Teacher", dept.Code),
			Email:        fmt.Sprintf("teacher.%s@acadex.edu", strings.ToLower(dept.Code)),
			PasswordHash: passwordHash,
			Role:         model.RoleTeacher,
			DepartmentID: &deptID,
			EmployeeID:   &teacherEmployeeID,
			IsActive:     true,
		}
		if err := s.db.Create(&teacher).Error; err != nil {
			return err
		}

		created += 2
	}

	log.Printf("✅ Created %d staff users", created)
	return nil
}

// SeedStudents creates a handful of demo students in the first department
func (s *Seeder) SeedStudents() error {
	var count int64
	if err := s.db.Model(&model.User{}).Where("role = ?", model.RoleStudent).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		log.Println("⏭️  Students already exist, skipping...")
		return nil
	}

	var dept model.Department
	if err := s.db.Order("code ASC").First(&dept).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			log.Println("⚠️  No departments found, skipping student seeding")
			return nil
		}
		return err
	}

	passwordHash, err := auth.HashPassword("ChangeMe@123")
	if err != nil {
		return err
	}

	students := make([]model.User, 0, 5)
	for i := 1; i <= 5; i++ {
		deptID := dept.ID
		rollNumber := fmt.Sprintf("%s2023%03d", dept.Code, i)
		students = append(students, model.User{
			Name:         fmt.Sprintf("Demo Student %02d", i),
			Email:        fmt.Sprintf("student%02d.%s@acadex.edu", i, strings.ToLower(dept.Code)),
			PasswordHash: passwordHash,
			Role:         model.RoleStudent,
			DepartmentID: &deptID,
			RollNumber:   &rollNumber,
			AcademicYear: "2025-2026",
			Semester:     3,
			IsActive:     true,
		})
	}
	if err := s.db.Create(&students).Error; err != nil {
		return err
	}

	log.Printf("✅ Created %d students", len(students))
	return nil
}

// SeedSubjects creates demo subjects assigned to the seeded teachers
func (s *Seeder) SeedSubjects() error {
	var count int64
	if err := s.db.Model(&model.Subject{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		log.Println("⏭️  Subjects already exist, skipping...")
		return nil
	}

	var dept model.Department
	if err := s.db.Order("code ASC").First(&dept).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			log.Println("⚠️  No departments found, skipping subject seeding")
			return nil
		}
		return err
	}

	var teacher model.User
	teacherID := new(uint)
	err := s.db.Where("role = ? AND department_id = ?", model.RoleTeacher, dept.ID).First(&teacher).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			return err
		}
		teacherID = nil
	} else {
		*teacherID = teacher.ID
	}

	subjects := []model.Subject{
		{
			Name: "Data Structures", Code: "CS201", DepartmentID: dept.ID,
			Semester: 3, AcademicYear: "2025-2026", Credits: 4,
			TeacherID: teacherID, MaxMarks: 300, PassingMarks: 120, IsActive: true,
		},
		{
			Name: "Discrete Mathematics", Code: "CS202", DepartmentID: dept.ID,
			Semester: 3, AcademicYear: "2025-2026", Credits: 3,
			TeacherID: teacherID, MaxMarks: 300, PassingMarks: 120, IsActive: true,
		},
		{
			Name: "Digital Logic Design", Code: "CS203", DepartmentID: dept.ID,
			Semester: 3, AcademicYear: "2025-2026", Credits: 3,
			MaxMarks: 300, PassingMarks: 120, IsActive: true,
		},
	}
	if err := s.db.Create(&subjects).Error; err != nil {
		return err
	}

	log.Printf("✅ Created %d subjects", len(subjects))
	return nil
}

// SeedGrades records published demo marks for the seeded students in their
// teacher-assigned subjects.
func (s *Seeder) SeedGrades() error {
	var count int64
	if err := s.db.Model(&model.Grade{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		log.Println("⏭️  Grades already exist, skipping...")
		return nil
	}

	var students []model.User
	if err := s.db.Where("role = ?", model.RoleStudent).Order("roll_number ASC").Find(&students).Error; err != nil {
		return err
	}
	var subjects []model.Subject
	if err := s.db.Where("teacher_id IS NOT NULL").Order("code ASC").Find(&subjects).Error; err != nil {
		return err
	}
	if len(students) == 0 || len(subjects) == 0 {
		log.Println("⚠️  No students or assigned subjects found, skipping grade seeding")
		return nil
	}

	now := time.Now()
	created := 0
	for i, student := range students {
		for j, subject := range subjects {
			// Spread component marks so the demo totals cover the letter range
			base := float64(10 + (i*13+j*7)%25)
			grade := model.Grade{
				StudentID:      student.ID,
				SubjectID:      subject.ID,
				ExamType:       model.ExamRegular,
				TheoryMarks:    base,
				PracticalMarks: base - 3,
				InternalMarks:  base - 2,
				Semester:       subject.Semester,
				AcademicYear:   subject.AcademicYear,
				IsPublished:    true,
				PublishedAt:    &now,
				GradedByID:     subject.TeacherID,
			}
			grade.Recalculate()
			if err := s.db.Create(&grade).Error; err != nil {
				return err
			}
			created++
		}
	}

	log.Printf("✅ Created %d grades", created)
	return nil
}
