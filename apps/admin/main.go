package main

import (
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/scheduleme/backend/core"
	"github.com/scheduleme/backend/core/teacher"
	"github.com/scheduleme/backend/core/user"
	"github.com/scheduleme/backend/storage/database"
	sqlxrepos "github.com/scheduleme/backend/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()

	// set up DB
	db, err := database.Open(conf)
	errAndDie(err)

	cli := commandLine{
		db:       db,
		usrSvc:   user.NewService(sqlxrepos.NewUserRepository(db), teacher.NewService(sqlxrepos.NewTeacherRepository(db)), conf),
		validate: newValidator(),
	}
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func newValidator() *validator.Validate {
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
