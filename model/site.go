package model

// Site 表示一个 CDDB 镜像站点
type Site struct {
	Site        string `json:"site" yaml:"site"`
	Protocol    string `json:"protocol" yaml:"protocol"`
	Port        int    `json:"port" yaml:"port"`
	Address     string `json:"address" yaml:"address"`
	Latitude    string `json:"latitude" yaml:"latitude"`
	Longitude   string `json:"longitude" yaml:"longitude"`
	Description string `json:"description" yaml:"description"`
}
