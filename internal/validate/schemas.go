package validate

var Genders = []string{"Male", "Female", "Other"}

// SignupSchema validates the signup form
var SignupSchema = &Schema{
	Name: "signup",
	Fields: []Field{
		{Name: "name", Rules: []Rule{Required("Name is required")}},
		{Name: "email", Rules: []Rule{Required("Email is required"), EmailStrict("Invalid email")}},
		{Name: "phone", Rules: []Rule{Required("Phone is required"), Digits("Phone must be numbers only")}},
		{Name: "password", Rules: []Rule{Required("Password is required"), MinLen(6, "Password must be at least 6 characters")}},
		{Name: "gender", Rules: []Rule{Required("Gender is required"), OneOf(Genders, "Gender must be Male, Female or Other")}},
	},
}

// LoginSchema validates the login form
var LoginSchema = &Schema{
	Name: "login",
	Fields: []Field{
		{Name: "email", Rules: []Rule{Required("Email is required"), EmailStrict("Invalid email")}},
		{Name: "password", Rules: []Rule{Required("Password is required"), MinLen(6, "Password must be at least 6 characters")}},
	},
}

// ProductSchema validates the product submission form
var ProductSchema = &Schema{
	Name: "product",
	Fields: []Field{
		{Name: "productName", Rules: []Rule{Required("Product Name is required.")}},
		{Name: "description", Rules: []Rule{Required("Description is required.")}},
		{Name: "price", Rules: []Rule{Required("Price is required."), Number("Price must be a number.")}},
		{Name: "category", Rules: []Rule{Required("Category is required.")}},
		{Name: "productImage", File: true, Rules: []Rule{FileRequired("Product Image is required.")}},
	},
}

// DemoSchema validates the standalone /form page
var DemoSchema = &Schema{
	Name: "demo",
	Fields: []Field{
		{Name: "name", Rules: []Rule{Required("Name is required.")}},
		{Name: "email", Rules: []Rule{Required("Email is required."), EmailSimple("Email is not valid.")}},
	},
}
