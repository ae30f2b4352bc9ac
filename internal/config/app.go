package config

type AppConfig struct {
	Server  ServerConfig
	Game    GameConfig
	Scoring ScoringConfig
	Content ContentConfig
	Log     LogConfig
}

func LoadApp() (AppConfig, error) {
	logCfg, err := LoadLog()
	if err != nil {
		return AppConfig{}, err
	}
	serverCfg, err := LoadServer()
	if err != nil {
		return AppConfig{}, err
	}
	gameCfg, err := LoadGame()
	if err != nil {
		return AppConfig{}, err
	}
	scoringCfg, err := LoadScoring()
	if err != nil {
		return AppConfig{}, err
	}
	contentCfg, err := LoadContent()
	if err != nil {
		return AppConfig{}, err
	}
	return AppConfig{
		Server:  serverCfg,
		Game:    gameCfg,
		Scoring: scoringCfg,
		Content: contentCfg,
		Log:     logCfg,
	}, nil
}
