package handlers

import (
	"context"
	"errors"
	"school-fees/db"
	"school-fees/models"
	"school-fees/utils"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
)

// insertStudent creates a ledger row. Input is validated by the caller.
func insertStudent(ctx context.Context, req models.AddStudentRequest) (models.Student, error) {
	var student models.Student
	query := `
		INSERT INTO students (name, class, total_fees, amount_paid, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, name, class, total_fees, amount_paid, created_at
	`
	err := db.Pool.QueryRow(ctx, query, req.Name, req.Class, req.TotalFees, req.AmountPaid).Scan(
		&student.ID,
		&student.Name,
		&student.Class,
		&student.TotalFees,
		&student.AmountPaid,
		&student.CreatedAt,
	)
	return student, err
}

// listStudents returns the full ledger in insertion order.
func listStudents(ctx context.Context) ([]models.Student, error) {
	query := `SELECT id, name, class, total_fees, amount_paid, created_at FROM students ORDER BY id`
	rows, err := db.Pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	students := []models.Student{}
	for rows.Next() {
		var student models.Student
		if err := rows.Scan(&student.ID, &student.Name, &student.Class, &student.TotalFees, &student.AmountPaid, &student.CreatedAt); err != nil {
			return nil, err
		}
		students = append(students, student)
	}
	return students, rows.Err()
}

// applyPaymentTo adds amount to a student's amount_paid. The update is a
// single guarded statement, so concurrent payments against the same student
// can never push amount_paid past total_fees or lose each other's writes.
func applyPaymentTo(ctx context.Context, studentID int, amount float64) (models.Student, error) {
	var student models.Student
	query := `
		UPDATE students
		SET amount_paid = amount_paid + $1
		WHERE id = $2 AND amount_paid + $1 <= total_fees
		RETURNING id, name, class, total_fees, amount_paid, created_at
	`
	err := db.Pool.QueryRow(ctx, query, amount, studentID).Scan(
		&student.ID,
		&student.Name,
		&student.Class,
		&student.TotalFees,
		&student.AmountPaid,
		&student.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		var exists bool
		if err := db.Pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM students WHERE id = $1)`, studentID).Scan(&exists); err != nil {
			return student, err
		}
		if !exists {
			return student, models.ErrNotFound
		}
		return student, models.ErrBalanceExceeded
	}
	return student, err
}

// Dashboard handles GET /
func Dashboard(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	students, err := listStudents(ctx)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch students"})
	}

	return c.JSON(fiber.Map{
		"username": c.Locals("username"),
		"students": students,
		"totals":   models.TotalsOf(students),
		"message":  utils.PopFlash(c),
	})
}

// AddStudent handles POST /add
func AddStudent(c *fiber.Ctx) error {
	var req models.AddStudentRequest
	if err := c.BodyParser(&req); err != nil {
		utils.SetFlash(c, "Total fees and amount paid must be numbers.")
		return c.Redirect("/", fiber.StatusFound)
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Class = strings.TrimSpace(req.Class)

	if err := models.Validate(req); err != nil {
		utils.SetFlash(c, addStudentMessage(err))
		return c.Redirect("/", fiber.StatusFound)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if _, err := insertStudent(ctx, req); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to add student"})
	}

	utils.SetFlash(c, "Student added successfully.")
	return c.Redirect("/", fiber.StatusFound)
}

func addStudentMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		switch {
		case fe.Field() == "Name" || fe.Field() == "Class":
			return "Name and class are required."
		case fe.Tag() == "ltefield":
			return "Amount paid cannot exceed total fees."
		}
	}
	return "Total fees and amount paid must be non-negative numbers."
}

// UpdatePayment handles POST /update/:student_id
func UpdatePayment(c *fiber.Ctx) error {
	studentID, err := c.ParamsInt("student_id")
	if err != nil {
		utils.SetFlash(c, "Student not found.")
		return c.Redirect("/", fiber.StatusFound)
	}

	var req models.ApplyPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		utils.SetFlash(c, "Invalid payment amount.")
		return c.Redirect("/", fiber.StatusFound)
	}
	if err := models.Validate(req); err != nil {
		utils.SetFlash(c, "Invalid payment amount.")
		return c.Redirect("/", fiber.StatusFound)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if _, err := applyPaymentTo(ctx, studentID, req.Payment); err != nil {
		switch err {
		case models.ErrNotFound:
			utils.SetFlash(c, "Student not found.")
		case models.ErrBalanceExceeded:
			utils.SetFlash(c, "Payment exceeds total fees.")
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update payment"})
		}
		return c.Redirect("/", fiber.StatusFound)
	}

	utils.SetFlash(c, "Payment updated successfully.")
	return c.Redirect("/", fiber.StatusFound)
}
