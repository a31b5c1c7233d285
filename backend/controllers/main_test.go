package controllers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"project/backend/config"
	"project/backend/database"
	"project/backend/models"
	"project/backend/routes"
	"project/backend/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	app *fiber.App
	db  *gorm.DB
	cfg *config.Config

	adminToken   string
	teacherToken string
	studentToken string

	adminUser   models.User
	teacherUser models.User
	studentUser models.User
)

func TestMain(m *testing.M) {
	setup()
	code := m.Run()
	teardown()
	os.Exit(code)
}

func setup() {
	cfg = &config.Config{
		JWTSecret:            "testsecret",
		ServerPort:           "8080",
		LogMode:              "development",
		RemediationThreshold: 4.0,
	}

	var err error
	db, err = gorm.Open(sqlite.Open("file:controllers?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		panic(err)
	}
	if err := database.Migrate(db); err != nil {
		panic(err)
	}

	app = fiber.New()
	routes.SetupRoutes(app, db, zap.NewNop().Sugar(), cfg)

	adminUser = seedUser("admin", models.RoleAdmin)
	teacherUser = seedUser("teacher", models.RoleTeacher)
	studentUser = seedUser("student", models.RoleStudent)
	adminToken = tokenFor(adminUser)
	teacherToken = tokenFor(teacherUser)
	studentToken = tokenFor(studentUser)
}

func teardown() {
	database.Close(db)
}

func seedUser(username, role string) models.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	user := models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: string(hash),
		FullName:     username,
		Role:         role,
	}
	if err := db.Create(&user).Error; err != nil {
		panic(err)
	}
	return user
}

func tokenFor(user models.User) string {
	token, err := utils.GenerateJWTToken(user.ID, cfg)
	if err != nil {
		panic(err)
	}
	return token
}

func doRequest(t *testing.T, method, path, token string, body interface{}) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewBuffer(jsonData)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func decodeMap(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	return result
}

func decodeList(t *testing.T, resp *http.Response) []map[string]interface{} {
	t.Helper()
	var result []map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	return result
}
