package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Env              string
		Build            string
		AppName          string
		Debug            bool
		TestMode         bool
		SecretKey        string
		FrontendBaseURL  string
		DefaultFromEmail mail.Address
		SendgridApiKey   string
		RollbarToken     string

		// DefaultProctors are emails that get the proctor role when their account is first seen.
		DefaultProctors []string

		Server             ServerConfig
		Database           DatabaseConfig
		AWS                AWSConfig
		LegacyMeetingCache CacheConfig
	}

	ServerConfig struct {
		Host               string
		Addr               string
		DebugHost          string
		ShutdownTimeout    time.Duration
		JWTExpirationDelta time.Duration
		CORSAllowOrigins   []string
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
		InMemory      bool
	}

	AWSConfig struct {
		Region             string
		DefaultMediaRegion string
		CognitoUserPoolID  string
		CognitoAppClientID string
		CognitoRegion      string
		RecordingsBucket   string
		PresignExpiry      time.Duration
	}

	CacheConfig struct {
		Size int
		TTL  time.Duration
	}
)

func (dbConf DatabaseConfig) Address() string {
	return net.JoinHostPort(dbConf.Host, dbConf.Port)
}

// CognitoEnabled reports whether bearer tokens must be verified against the Cognito user pool.
func (awsConf AWSConfig) CognitoEnabled() bool {
	return awsConf.CognitoUserPoolID != "" && awsConf.CognitoAppClientID != ""
}

// CognitoIdentityRegion returns the explicit Cognito region, else the one prefixing the pool ID
// (e.g. "ap-northeast-1_xxxxx"), else the default AWS region.
func (awsConf AWSConfig) CognitoIdentityRegion() string {
	if awsConf.CognitoRegion != "" {
		return awsConf.CognitoRegion
	}
	if i := strings.Index(awsConf.CognitoUserPoolID, "_"); i > 0 {
		return awsConf.CognitoUserPoolID[:i]
	}
	return awsConf.Region
}

// IsDefaultProctor reports whether email is listed in DefaultProctors.
func (c *Config) IsDefaultProctor(email string) bool {
	email = CleanString(email, true /* lower */)
	for _, p := range c.DefaultProctors {
		if email != "" && CleanString(p, true /* lower */) == email {
			return true
		}
	}
	return false
}

func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("build", "develop")
	v.SetDefault("appName", "ExamSurveil")
	v.SetDefault("secretKey", "h7(2v$kq%m0-u3z!rl9wq=8c@x5e&d4pb*6j)ytfsn#ag_1o")
	v.SetDefault("frontendBaseURL", "http://localhost:5173")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("defaultProctors", []string{})

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.debugHost", "localhost:4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.corsAllowOrigins", []string{"*"})

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "exam_surveillance")
	v.SetDefault("database.user", "examsurveil")
	v.SetDefault("database.password", "examsurveil")
	v.SetDefault("database.adminUser", "")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTLS", true)
	v.SetDefault("database.inMemory", false)

	v.SetDefault("aws.region", "us-east-1")
	v.SetDefault("aws.defaultMediaRegion", "us-east-1")
	v.SetDefault("aws.cognitoUserPoolID", "")
	v.SetDefault("aws.cognitoAppClientID", "")
	v.SetDefault("aws.cognitoRegion", "")
	v.SetDefault("aws.recordingsBucket", "")
	v.SetDefault("aws.presignExpiry", 15*time.Minute)

	v.SetDefault("legacyMeetingCache.size", 1024)
	v.SetDefault("legacyMeetingCache.ttl", 24*time.Hour)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		Env:              env,
		Build:            v.GetString("build"),
		AppName:          v.GetString("appName"),
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		SecretKey:        v.GetString("secretKey"),
		FrontendBaseURL:  strings.TrimRight(v.GetString("frontendBaseURL"), "/"),
		DefaultFromEmail: mail.Address{Name: v.GetString("appName"), Address: v.GetString("defaultFromEmail")},
		SendgridApiKey:   v.GetString("sendgridApiKey"),
		RollbarToken:     v.GetString("rollbarToken"),
		DefaultProctors:  splitList(v.GetStringSlice("defaultProctors")),
		Server: ServerConfig{
			Host:               v.GetString("server.host"),
			Addr:               v.GetString("server.addr"),
			DebugHost:          v.GetString("server.debugHost"),
			ShutdownTimeout:    v.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta: v.GetDuration("server.jwtExpirationDelta"),
			CORSAllowOrigins:   splitList(v.GetStringSlice("server.corsAllowOrigins")),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetString("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
			InMemory:      v.GetBool("database.inMemory"),
		},
		AWS: AWSConfig{
			Region:             v.GetString("aws.region"),
			DefaultMediaRegion: v.GetString("aws.defaultMediaRegion"),
			CognitoUserPoolID:  v.GetString("aws.cognitoUserPoolID"),
			CognitoAppClientID: v.GetString("aws.cognitoAppClientID"),
			CognitoRegion:      v.GetString("aws.cognitoRegion"),
			RecordingsBucket:   v.GetString("aws.recordingsBucket"),
			PresignExpiry:      v.GetDuration("aws.presignExpiry"),
		},
		LegacyMeetingCache: CacheConfig{
			Size: v.GetInt("legacyMeetingCache.size"),
			TTL:  v.GetDuration("legacyMeetingCache.ttl"),
		},
	}
}

// splitList flattens comma separated env values ("a@x.io,b@x.io") into a clean list.
func splitList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, val := range values {
		for _, item := range strings.Split(val, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
	}
	return out
}
