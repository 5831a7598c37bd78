package config

import (
	"encoding/xml"
	"fmt"
	"os"
)

var MainConfig Config

// Config holds every option the vector pipeline recognizes. Loaded once at
// startup and passed by value into the services so handlers never re-read it.
type Config struct {
	XMLName xml.Name `xml:"config"`

	Enabled          bool   `xml:"enabled"`
	AutoProcess      bool   `xml:"autoProcess"`
	MaxSizeMB        int    `xml:"maxSizeMB"`
	MaxFeatures      int    `xml:"maxFeatures"`
	MaxItemsPerPage  int    `xml:"maxItemsPerPage"`
	Schema           string `xml:"schema"`
	TablePrefix      string `xml:"tablePrefix"`
	FlagAttribute    string `xml:"flagAttribute"`
	CorsOrigin       string `xml:"corsOrigin"`
	LoaderTimeoutSec int    `xml:"loaderTimeoutSec"`
	EditToken        string `xml:"editToken"`
	Listen           string `xml:"listen"`

	Dbname   string `xml:"dbname"`
	Host     string `xml:"host"`
	Port     string `xml:"port"`
	Username string `xml:"user"`
	Password string `xml:"password"`
	OgrDSN   string `xml:"ogrDSN"`
}

// Defaults returns a Config with every limit at its documented default.
func Defaults() Config {
	return Config{
		MaxSizeMB:        200,
		MaxFeatures:      50000,
		MaxItemsPerPage:  1000,
		Schema:           "public",
		TablePrefix:      "vector_",
		FlagAttribute:    "vector_enabled",
		CorsOrigin:       "*",
		LoaderTimeoutSec: 300,
		Listen:           ":8426",
		Host:             "localhost",
		Port:             "5432",
	}
}

// Load reads an XML config file over the defaults.
func Load(path string) (Config, error) {
	cfg := Defaults()
	xmlFile, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("opening config file: %w", err)
	}
	defer xmlFile.Close()

	if err := xml.NewDecoder(xmlFile).Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding config XML: %w", err)
	}
	cfg.applyFloors()
	MainConfig = cfg
	return cfg, nil
}

func (c *Config) applyFloors() {
	d := Defaults()
	if c.MaxSizeMB <= 0 {
		c.MaxSizeMB = d.MaxSizeMB
	}
	if c.MaxFeatures <= 0 {
		c.MaxFeatures = d.MaxFeatures
	}
	if c.MaxItemsPerPage <= 0 {
		c.MaxItemsPerPage = d.MaxItemsPerPage
	}
	if c.Schema == "" {
		c.Schema = d.Schema
	}
	if c.TablePrefix == "" {
		c.TablePrefix = d.TablePrefix
	}
	if c.FlagAttribute == "" {
		c.FlagAttribute = d.FlagAttribute
	}
	if c.CorsOrigin == "" {
		c.CorsOrigin = d.CorsOrigin
	}
	if c.LoaderTimeoutSec <= 0 {
		c.LoaderTimeoutSec = d.LoaderTimeoutSec
	}
	if c.Listen == "" {
		c.Listen = d.Listen
	}
}

// DSN is the gorm/pgx connection string for the spatial database.
func (c Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		c.Host, c.Username, c.Password, c.Dbname, c.Port)
}

// OgrPGDSN is the datasource string handed to ogr2ogr. An explicit ogrDSN
// option wins so the loader can write through a different role or pooler.
func (c Config) OgrPGDSN() string {
	if c.OgrDSN != "" {
		return c.OgrDSN
	}
	return fmt.Sprintf("host=%s port=%s dbname=%s user=%s password=%s",
		c.Host, c.Port, c.Dbname, c.Username, c.Password)
}
