package domain

// Tables migrated by the resource server
var Tables = []interface{}{
	&User{},
	&Product{},
}
